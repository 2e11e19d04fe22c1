package api

import "github.com/yamcs-studio/yamcs-ws/internal/protocol"

// ServerInfo is returned by GET /api.
type ServerInfo struct {
	YamcsVersion         string `json:"yamcsVersion"`
	Revision             string `json:"revision"`
	ServerID             string `json:"serverId"`
	DefaultYamcsInstance string `json:"defaultYamcsInstance"`
}

// Parameter is a mission database parameter.
type Parameter struct {
	Name          string                   `json:"name"`
	QualifiedName string                   `json:"qualifiedName"`
	Alias         []protocol.NamedObjectID `json:"alias,omitempty"`
	Type          *ParameterType           `json:"type,omitempty"`
	DataSource    string                   `json:"dataSource,omitempty"`
}

// ParameterType describes the engineering type of a parameter.
type ParameterType struct {
	EngType string `json:"engType"`
}

// ID returns the id used to subscribe to the parameter.
func (p Parameter) ID() protocol.NamedObjectID {
	if p.QualifiedName != "" {
		return protocol.NamedObjectID{Name: p.QualifiedName}
	}
	return protocol.NamedObjectID{Name: p.Name}
}

// ListParametersOptions filters a parameter listing.
type ListParametersOptions struct {
	Namespace string // Space system, e.g. /YSS/SIMULATOR
	Recurse   bool   // Include sub-systems of Namespace
	Query     string // Free-text search
	Limit     int
	Next      string // Continuation token from a previous page
}

// ListParametersResponse is one page of a parameter listing.
type ListParametersResponse struct {
	Parameters        []Parameter `json:"parameters"`
	ContinuationToken string      `json:"continuationToken"`
	TotalSize         int         `json:"totalSize"`
}
