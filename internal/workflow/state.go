package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// newState creates a running state with an empty graph
func newState(name, input, runDir string) *WorkflowState {
	return &WorkflowState{
		ID:        uuid.New().String(),
		Name:      name,
		Graph:     NewWorkflowGraph(),
		Input:     input,
		RunDir:    runDir,
		StartTime: time.Now(),
		Status:    WorkflowStatusRunning,
		History:   make([]WorkflowEvent, 0),
	}
}

// AddEvent adds an event to the workflow history in a thread-safe manner.
// Missing ids and timestamps are filled in.
func (s *WorkflowState) AddEvent(event WorkflowEvent) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	s.Lock()
	defer s.Unlock()
	s.History = append(s.History, event)
}

// UpdateNodeStatus updates a node's status in a thread-safe manner
func (s *WorkflowState) UpdateNodeStatus(nodeID string, status NodeStatus) {
	s.Lock()
	defer s.Unlock()
	if node, exists := s.Graph.Nodes[nodeID]; exists {
		node.Status = status
	}
}

// UpdateNodeResult stores what a node produced in a thread-safe manner
func (s *WorkflowState) UpdateNodeResult(nodeID string, outputs map[string]string, metadata, stats map[string]interface{}) {
	s.Lock()
	defer s.Unlock()
	if node, exists := s.Graph.Nodes[nodeID]; exists {
		node.Outputs = outputs
		node.Metadata = metadata
		node.Statistics = stats
	}
}

// GetNodeStatus gets a node's status in a thread-safe manner
func (s *WorkflowState) GetNodeStatus(nodeID string) NodeStatus {
	s.RLock()
	defer s.RUnlock()
	if node, exists := s.Graph.Nodes[nodeID]; exists {
		return node.Status
	}
	return NodeStatusPending
}

// stateFile is the on-disk form of a WorkflowState
type stateFile struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	Status      WorkflowStatus  `yaml:"status"`
	Input       string          `yaml:"input,omitempty"`
	RunDir      string          `yaml:"runDir"`
	StartTime   time.Time       `yaml:"startTime"`
	EndTime     time.Time       `yaml:"endTime,omitempty"`
	CurrentNode string          `yaml:"currentNode,omitempty"`
	Nodes       []nodeRecord    `yaml:"nodes"`
	History     []WorkflowEvent `yaml:"history,omitempty"`
}

type nodeRecord struct {
	ID         string                 `yaml:"id"`
	Name       string                 `yaml:"name"`
	Module     string                 `yaml:"module"`
	Status     NodeStatus             `yaml:"status"`
	Inputs     map[string]interface{} `yaml:"inputs,omitempty"`
	Outputs    map[string]string      `yaml:"outputs,omitempty"`
	Metadata   map[string]interface{} `yaml:"metadata,omitempty"`
	Statistics map[string]interface{} `yaml:"statistics,omitempty"`
	Error      string                 `yaml:"error,omitempty"`
}

// StatePath returns <runDir>/<name>.state.yaml with spaces replaced
func StatePath(runDir, name string) string {
	return filepath.Join(runDir, strings.ReplaceAll(name, " ", "_")+".state.yaml")
}

// SaveWorkflowState writes state as YAML to path
func SaveWorkflowState(state *WorkflowState, path string) error {
	state.RLock()
	file := stateFile{
		ID:          state.ID,
		Name:        state.Name,
		Status:      state.Status,
		Input:       state.Input,
		RunDir:      state.RunDir,
		StartTime:   state.StartTime,
		EndTime:     state.EndTime,
		CurrentNode: state.CurrentNode,
		History:     append([]WorkflowEvent(nil), state.History...),
	}
	state.RUnlock()

	state.Graph.RLock()
	for _, id := range state.Graph.order {
		n := state.Graph.Nodes[id]
		file.Nodes = append(file.Nodes, nodeRecord{
			ID:         n.ID,
			Name:       n.Step.Name,
			Module:     n.Step.Module,
			Status:     n.Status,
			Inputs:     n.Inputs,
			Outputs:    n.Outputs,
			Metadata:   n.Metadata,
			Statistics: n.Statistics,
			Error:      n.Error,
		})
	}
	state.Graph.RUnlock()

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write workflow state: %w", err)
	}
	return nil
}

// LoadWorkflowState reads a state written by SaveWorkflowState. Edges are
// not stored; the restored graph only carries node results.
func LoadWorkflowState(path string) (*WorkflowState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow state: %w", err)
	}

	var file stateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse workflow state: %w", err)
	}

	state := &WorkflowState{
		ID:          file.ID,
		Name:        file.Name,
		Graph:       NewWorkflowGraph(),
		Input:       file.Input,
		RunDir:      file.RunDir,
		StartTime:   file.StartTime,
		EndTime:     file.EndTime,
		Status:      file.Status,
		CurrentNode: file.CurrentNode,
		History:     file.History,
	}
	for _, r := range file.Nodes {
		node := &WorkflowNode{
			ID:         r.ID,
			Step:       Step{Name: r.Name, Module: r.Module},
			Status:     r.Status,
			Inputs:     r.Inputs,
			Outputs:    r.Outputs,
			Metadata:   r.Metadata,
			Statistics: r.Statistics,
			Error:      r.Error,
		}
		state.Graph.Nodes[node.ID] = node
		state.Graph.order = append(state.Graph.order, node.ID)
	}
	return state, nil
}
