package internal

import "github.com/ValentinKolb/tKV/lib/tree"

// QueryType defines the possible queries for the state machine.
type QueryType uint8

const (
	QueryTStat QueryType = iota // Retrieve the kind of the node at a path.
	QueryTList                  // List the children of a directory.
	QueryTRead                  // Read the contents of a leaf.
	QueryTPing                  // Check that the state machine answers.
)

func (q QueryType) String() string {
	switch q {
	case QueryTStat:
		return "Stat"
	case QueryTList:
		return "List"
	case QueryTRead:
		return "Read"
	case QueryTPing:
		return "Ping"
	default:
		return "Unknown"
	}
}

// Query defines the structure for lookup requests (read-only) sent via SyncRead or ReadStale
type Query struct {
	Type QueryType // The type of Query to perform.
	Path string    // Slash separated path of the node ("" for the root).
}

// EntryInfo describes a single child returned by QueryTList
type EntryInfo struct {
	Name string
	Kind tree.Kind
}

// QueryResult is the result of every query. Only the fields matching the query type are set.
type QueryResult struct {
	Code    ResultCode
	Message string
	Kind    tree.Kind   // QueryTStat
	Entries []EntryInfo // QueryTList, in name order
	Value   []byte      // QueryTRead
}
