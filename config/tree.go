package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/supportmesh/agent"
	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/model"
	"github.com/hupe1980/supportmesh/tool"
)

// TreeSpec declares one agent node of a YAML tree document. A spec is pure
// data; Build binds it to a model and tool adapter to produce a live tree.
//
// Example:
//
//	name: Coordinator
//	kind: router
//	default_child: Escalation
//	children:
//	  - name: Order
//	    kind: leaf
//	    tools: [get_order_status]
type TreeSpec struct {
	// Name identifies the node. Names must not contain '.', which delimits
	// scratch scopes, and siblings must be unique case-insensitively.
	Name string `yaml:"name"`
	// Kind selects the node behavior: leaf, router, sequential or parallel.
	Kind string `yaml:"kind"`
	// Description feeds router classification prompts.
	Description string `yaml:"description,omitempty"`
	// Instruction is the system prompt template. Valid on leaf and router.
	Instruction string `yaml:"instruction,omitempty"`
	// Tools lists the adapter tools a leaf may call.
	Tools []string `yaml:"tools,omitempty"`
	// OutputKey stores a leaf's reply in session scratch under this key.
	OutputKey string `yaml:"output_key,omitempty"`
	// DefaultChild absorbs unknown routing labels. Routers only.
	DefaultChild string `yaml:"default_child,omitempty"`
	// Timeout bounds a parallel node's fan-out, e.g. "20s". Parallel only.
	Timeout string `yaml:"timeout,omitempty"`
	// Children are the node's sub-agents. Leaves have none.
	Children []TreeSpec `yaml:"children,omitempty"`
}

// BuildContext supplies the runtime services a declarative tree binds to.
type BuildContext struct {
	// Model backs every leaf completion and router classification.
	Model model.Model
	// Adapter resolves declared tools. Required once any node lists tools.
	Adapter *tool.Adapter
	// Synthesizers maps parallel node names to custom result synthesizers.
	// Unlisted parallel nodes use the default digest formatter.
	Synthesizers map[string]agent.Synthesizer
	// Timeouts carries runtime bounds into the built nodes: Model bounds
	// leaf completions, Classify bounds router classification. Zero values
	// keep the constructors' defaults.
	Timeouts TimeoutsConfig
}

// LoadTree reads and decodes the YAML tree spec at path. Unknown fields are
// rejected so typos fail at load time.
func LoadTree(path string) (*TreeSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tree spec %s: %w", path, err)
	}

	return ParseTree(data)
}

// ParseTree decodes a YAML tree spec from raw bytes, rejecting unknown
// fields.
func ParseTree(data []byte) (*TreeSpec, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var spec TreeSpec
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing tree spec: %w", err)
	}

	return &spec, nil
}

// Validate checks the spec's structural rules without building anything:
// kind enums, leaf/composite child rules, default-child existence, sibling
// name uniqueness and timeout syntax.
func (s *TreeSpec) Validate() error {
	return s.validate("")
}

// Build validates the spec and constructs the agent tree.
func (s *TreeSpec) Build(bc BuildContext) (core.Agent, error) {
	if bc.Model == nil {
		return nil, errors.New("tree build: model is required")
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s.build(bc)
}

func (s *TreeSpec) validate(parent string) error {
	path := s.Name
	if parent != "" {
		path = parent + "/" + s.Name
	}

	if s.Name == "" {
		if path == "" {
			path = "(root)"
		}

		return fmt.Errorf("tree spec: node %s: name is required", path)
	}

	if strings.Contains(s.Name, ".") {
		return fmt.Errorf("tree spec: node %s: names must not contain '.' (reserved as the scratch scope delimiter)", path)
	}

	kind := strings.ToLower(s.Kind)
	switch kind {
	case string(core.KindLeaf):
		if len(s.Children) > 0 {
			return fmt.Errorf("tree spec: node %s: leaf nodes cannot have children", path)
		}
	case string(core.KindRouter), string(core.KindSequential), string(core.KindParallel):
		if len(s.Children) == 0 {
			return fmt.Errorf("tree spec: node %s: %s nodes need at least one child", path, kind)
		}

		if len(s.Tools) > 0 {
			return fmt.Errorf("tree spec: node %s: tools are only valid on leaf nodes", path)
		}

		if s.OutputKey != "" {
			return fmt.Errorf("tree spec: node %s: output_key is only valid on leaf nodes", path)
		}

		if s.Instruction != "" && kind != string(core.KindRouter) {
			return fmt.Errorf("tree spec: node %s: instruction is only valid on leaf and router nodes", path)
		}
	default:
		return fmt.Errorf("tree spec: node %s: unknown kind %q (want leaf, router, sequential or parallel)", path, s.Kind)
	}

	if s.DefaultChild != "" {
		if kind != string(core.KindRouter) {
			return fmt.Errorf("tree spec: node %s: default_child is only valid on routers", path)
		}

		if !s.hasChild(s.DefaultChild) {
			return fmt.Errorf("tree spec: node %s: default_child %q does not name a child", path, s.DefaultChild)
		}
	}

	if s.Timeout != "" {
		if kind != string(core.KindParallel) {
			return fmt.Errorf("tree spec: node %s: timeout is only valid on parallel nodes", path)
		}

		if _, err := time.ParseDuration(s.Timeout); err != nil {
			return fmt.Errorf("tree spec: node %s: invalid timeout: %w", path, err)
		}
	}

	// Routing labels match case-insensitively, so sibling names must be
	// unique under folding.
	seen := make(map[string]string, len(s.Children))
	for i := range s.Children {
		child := &s.Children[i]

		lower := strings.ToLower(child.Name)
		if prev, dup := seen[lower]; dup {
			return fmt.Errorf("tree spec: node %s: duplicate child name %q (clashes with %q)", path, child.Name, prev)
		}
		seen[lower] = child.Name

		if err := child.validate(path); err != nil {
			return err
		}
	}

	return nil
}

func (s *TreeSpec) hasChild(name string) bool {
	for i := range s.Children {
		if strings.EqualFold(s.Children[i].Name, name) {
			return true
		}
	}

	return false
}

func (s *TreeSpec) build(bc BuildContext) (core.Agent, error) {
	children := make([]core.Agent, 0, len(s.Children))
	for i := range s.Children {
		child, err := s.Children[i].build(bc)
		if err != nil {
			return nil, err
		}

		children = append(children, child)
	}

	switch core.Kind(strings.ToLower(s.Kind)) {
	case core.KindLeaf:
		return s.buildLeaf(bc)
	case core.KindRouter:
		router := agent.NewRouter(s.Name, bc.Model, children, func(o *agent.RouterOptions) {
			if s.Instruction != "" {
				o.Instruction = agent.NewInstructionFromText(s.Instruction)
			}

			o.DefaultChild = s.DefaultChild

			if bc.Timeouts.Classify > 0 {
				o.ClassifyTimeout = bc.Timeouts.Classify
			}
		})
		router.SetDescription(s.Description)

		return router, nil
	case core.KindSequential:
		seq := agent.NewSequential(s.Name, children...)
		seq.SetDescription(s.Description)

		return seq, nil
	case core.KindParallel:
		par := agent.NewParallel(s.Name, children, func(o *agent.ParallelOptions) {
			if syn, ok := bc.Synthesizers[s.Name]; ok {
				o.Synthesizer = syn
			}

			if s.Timeout != "" {
				// Validated above.
				d, _ := time.ParseDuration(s.Timeout)
				o.Timeout = d
			}
		})
		par.SetDescription(s.Description)

		return par, nil
	default:
		return nil, fmt.Errorf("tree build: node %s: unknown kind %q", s.Name, s.Kind)
	}
}

func (s *TreeSpec) buildLeaf(bc BuildContext) (core.Agent, error) {
	if len(s.Tools) > 0 {
		if bc.Adapter == nil {
			return nil, fmt.Errorf("tree build: node %s declares tools but no adapter was provided", s.Name)
		}

		for _, name := range s.Tools {
			if _, ok := bc.Adapter.Lookup(name); !ok {
				return nil, fmt.Errorf("tree build: node %s declares unregistered tool %q", s.Name, name)
			}
		}
	}

	leaf := agent.NewLeaf(s.Name, bc.Model, bc.Adapter, func(o *agent.LeafOptions) {
		if s.Instruction != "" {
			o.Instruction = agent.NewInstructionFromText(s.Instruction)
		}

		o.Tools = s.Tools
		o.OutputKey = s.OutputKey

		if bc.Timeouts.Model > 0 {
			o.ModelTimeout = bc.Timeouts.Model
		}
	})
	leaf.SetDescription(s.Description)

	return leaf, nil
}
