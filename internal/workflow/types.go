// Package workflow runs the steps of a YAML workflow against the module
// registry and records what each step produced.
package workflow

import (
	"sync"
	"time"

	modules "github.com/gnzdotmx/chapterize/internal/mod"
)

// Core workflow types

// Workflow represents a complete video processing workflow
type Workflow struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Input       string `yaml:"input,omitempty"`
	Output      string `yaml:"output"`
	Steps       []Step `yaml:"steps"`

	// Registry holds all available modules
	registry *modules.ModuleRegistry
}

// Step represents a single processing step in a workflow
type Step struct {
	Name       string                 `yaml:"name"`
	Module     string                 `yaml:"module"`
	Parameters map[string]interface{} `yaml:"parameters"`
}

// Graph-related types

// WorkflowGraph represents the directed acyclic graph of workflow steps
type WorkflowGraph struct {
	sync.RWMutex // Protects all fields below
	Nodes        map[string]*WorkflowNode
	Edges        map[string][]string
	order        []string // node ids in insertion order
}

// WorkflowNode represents a single node in the workflow graph
type WorkflowNode struct {
	ID         string
	Step       Step
	Status     NodeStatus
	Inputs     map[string]interface{}
	Outputs    map[string]string
	Metadata   map[string]interface{}
	Statistics map[string]interface{}
	Error      string
}

// State-related types

// WorkflowState represents the current state of a workflow execution
type WorkflowState struct {
	sync.RWMutex // Protects all fields below

	ID          string
	Name        string
	Graph       *WorkflowGraph
	Input       string
	RunDir      string
	StartTime   time.Time
	EndTime     time.Time
	Status      WorkflowStatus
	CurrentNode string
	History     []WorkflowEvent
}

// WorkflowEvent represents an event that occurred during workflow execution
type WorkflowEvent struct {
	ID        string                 `yaml:"id"`
	Timestamp time.Time              `yaml:"timestamp"`
	NodeID    string                 `yaml:"node,omitempty"`
	Type      string                 `yaml:"type"`
	Message   string                 `yaml:"message"`
	Data      map[string]interface{} `yaml:"data,omitempty"`
}

// Event types recorded in the history
const (
	EventStarted   = "started"
	EventCompleted = "completed"
	EventFailed    = "failed"
	EventRestored  = "restored"
)

// Status types

// NodeStatus represents the current status of a workflow node
type NodeStatus string

const (
	NodeStatusPending  NodeStatus = "pending"
	NodeStatusRunning  NodeStatus = "running"
	NodeStatusComplete NodeStatus = "complete"
	NodeStatusFailed   NodeStatus = "failed"
	NodeStatusSkipped  NodeStatus = "skipped"
)

// WorkflowStatus represents the current status of the workflow
type WorkflowStatus string

const (
	WorkflowStatusPending  WorkflowStatus = "pending"
	WorkflowStatusRunning  WorkflowStatus = "running"
	WorkflowStatusComplete WorkflowStatus = "complete"
	WorkflowStatusFailed   WorkflowStatus = "failed"
)
