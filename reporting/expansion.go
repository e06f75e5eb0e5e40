package reporting

import (
	"maps"
	"net/url"
	"strings"
)

// NodePath addresses a node in the report tree. A project may hang directly
// off a process, in which case GroupID is empty.
type NodePath struct {
	Level     Level `json:"level"`
	ProcessID ID    `json:"processId"`
	GroupID   ID    `json:"groupId,omitempty"`
	ProjectID ID    `json:"projectId,omitempty"`
}

func ProcessPath(processID ID) NodePath {
	return NodePath{Level: LevelProcess, ProcessID: processID}
}

func GroupPath(processID, groupID ID) NodePath {
	return NodePath{Level: LevelGroup, ProcessID: processID, GroupID: groupID}
}

func ProjectPath(processID, groupID, projectID ID) NodePath {
	return NodePath{Level: LevelProject, ProcessID: processID, GroupID: groupID, ProjectID: projectID}
}

// CatchListPath addresses the leaf row under a project.
func CatchListPath(project NodePath) NodePath {
	project.Level = LevelCatchList
	return project
}

// Key is the composite map key for the node, e.g. "project:3/7/12". Each id
// is path-escaped so that distinct paths never share a key.
func (p NodePath) Key() string {
	var b strings.Builder
	b.WriteString(p.Level.String())
	b.WriteByte(':')
	b.WriteString(url.PathEscape(string(p.ProcessID)))
	b.WriteByte('/')
	b.WriteString(url.PathEscape(string(p.GroupID)))
	b.WriteByte('/')
	b.WriteString(url.PathEscape(string(p.ProjectID)))
	return b.String()
}

// Valid reports whether the ids required by the level are present.
func (p NodePath) Valid() bool {
	switch p.Level {
	case LevelProcess:
		return p.ProcessID != ""
	case LevelGroup:
		return p.ProcessID != "" && p.GroupID != ""
	case LevelProject:
		return p.ProcessID != "" && p.ProjectID != ""
	default:
		return false
	}
}

// Expansion is the open/closed state of one node.
type Expansion uint8

const (
	Collapsed Expansion = iota
	Expanded
)

// ExpansionState records which nodes are open, keyed by NodePath.Key. The
// zero value is usable and has every node collapsed.
type ExpansionState struct {
	nodes map[string]Expansion
}

func (s ExpansionState) IsExpanded(path NodePath) bool {
	return s.nodes[path.Key()] == Expanded
}

// With returns a copy with path set to e.
func (s ExpansionState) With(path NodePath, e Expansion) ExpansionState {
	next := make(map[string]Expansion, len(s.nodes)+1)
	maps.Copy(next, s.nodes)
	if e == Collapsed {
		delete(next, path.Key())
	} else {
		next[path.Key()] = e
	}
	return ExpansionState{nodes: next}
}

// WithAll returns a copy with every path expanded.
func (s ExpansionState) WithAll(paths []NodePath) ExpansionState {
	next := make(map[string]Expansion, len(s.nodes)+len(paths))
	maps.Copy(next, s.nodes)
	for _, p := range paths {
		next[p.Key()] = Expanded
	}
	return ExpansionState{nodes: next}
}

// AnyExpanded reports whether at least one node is open.
func (s ExpansionState) AnyExpanded() bool {
	return len(s.nodes) > 0
}

// Len returns the number of open nodes.
func (s ExpansionState) Len() int { return len(s.nodes) }
