package dbx

import (
	"context"
	"fmt"
	"net/url"
)

// ClusterInfo describes a compute cluster, as needed for runtime
// version checks.
type ClusterInfo struct {
	ClusterID      string `json:"cluster_id"`
	ClusterName    string `json:"cluster_name"`
	SparkVersion   string `json:"spark_version"`
	NodeTypeID     string `json:"node_type_id"`
	DriverNodeType string `json:"driver_node_type_id"`
	NumWorkers     int    `json:"num_workers"`
	State          string `json:"state"`
}

type clustersListResponse struct {
	Clusters []ClusterInfo `json:"clusters"`
}

// GetCluster fetches details for one cluster.
func (c *Client) GetCluster(ctx context.Context, clusterID string) (*ClusterInfo, error) {
	query := url.Values{"cluster_id": {clusterID}}

	var info ClusterInfo
	if err := c.GetJSON(ctx, "clusters", "/api/2.0/clusters/get", query, nil, &info); err != nil {
		return nil, fmt.Errorf("get cluster %s: %w", clusterID, err)
	}
	return &info, nil
}

// FindRunningCluster returns the first cluster in RUNNING state, used
// when no cluster ID is configured.
func (c *Client) FindRunningCluster(ctx context.Context) (*ClusterInfo, error) {
	var resp clustersListResponse
	if err := c.GetJSON(ctx, "clusters", "/api/2.0/clusters/list", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}

	for _, cl := range resp.Clusters {
		if cl.State == "RUNNING" {
			info := cl
			return &info, nil
		}
	}
	return nil, fmt.Errorf("no running clusters found")
}
