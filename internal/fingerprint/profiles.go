package fingerprint

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/ir-learner/internal/logic"
)

// ErrInvalidProfile is returned for malformed profile files.
var ErrInvalidProfile = errors.New("invalid fingerprint profile")

// Builtin returns the tables shipped with the daemon.
func Builtin() []*Table {
	panaAddr, panaData := logic.DecomposePanasonic(0x555AF148724C)
	return []*Table{
		NewTable("tvmoc-nec", logic.ProtocolNEC, []Button{
			{Name: "TV_OFF", Value: 0x11A00FF, Address: 0x11, Command: 0xA0},
			{Name: "CH_1", Value: 0x11A807F, Address: 0x11, Command: 0xA8},
			{Name: "CH_2", Value: 0x11AD22D, Address: 0x11, Command: 0xAD},
			{Name: "CH_3", Value: 0x11A52AD, Address: 0x11, Command: 0xA5},
			{Name: "CH_4", Value: 0x11A5AA5, Address: 0x11, Command: 0xA5},
			{Name: "CH_5", Value: 0x11A28D7, Address: 0x11, Command: 0xA2},
		}),
		NewTable("panasonic-tv", logic.ProtocolPanasonic, []Button{
			{Name: "TV_1", Value: 0x555AF148724C, Address: uint32(panaAddr), Command: panaData},
		}),
	}
}

// hexUint accepts YAML integers in any base strconv understands ("0x11A00FF", "161").
type hexUint uint64

func (h *hexUint) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", node.Line)
	}
	v, err := strconv.ParseUint(node.Value, 0, 64)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*h = hexUint(v)
	return nil
}

type profileFile struct {
	Profiles []profileYAML `yaml:"profiles"`
}

type profileYAML struct {
	Name     string `yaml:"name"`
	Protocol string `yaml:"protocol"`
	// Address is the default address for buttons that do not set one.
	Address hexUint      `yaml:"address"`
	Buttons []buttonYAML `yaml:"buttons"`
}

type buttonYAML struct {
	Name    string   `yaml:"name"`
	Value   hexUint  `yaml:"value"`
	Address *hexUint `yaml:"address,omitempty"`
	Command hexUint  `yaml:"command"`
}

// Parse reads fingerprint tables from a YAML document:
//
//	profiles:
//	  - name: living-room-tv
//	    protocol: NEC
//	    address: 0x11
//	    buttons:
//	      - {name: CH_1, value: 0x11A807F, command: 0xA8}
func Parse(data []byte) ([]*Table, error) {
	var f profileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	tables := make([]*Table, 0, len(f.Profiles))
	for i, p := range f.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: profile %d has no name", ErrInvalidProfile, i)
		}
		proto, ok := logic.ParseProtocol(p.Protocol)
		if !ok {
			return nil, fmt.Errorf("%w: profile %q: unknown protocol %q", ErrInvalidProfile, p.Name, p.Protocol)
		}

		buttons := make([]Button, 0, len(p.Buttons))
		for _, b := range p.Buttons {
			if b.Name == "" {
				return nil, fmt.Errorf("%w: profile %q: button without name", ErrInvalidProfile, p.Name)
			}
			if b.Value == 0 && b.Command == 0 {
				return nil, fmt.Errorf("%w: profile %q: button %q needs a value or a command", ErrInvalidProfile, p.Name, b.Name)
			}
			addr := uint32(p.Address)
			if b.Address != nil {
				addr = uint32(*b.Address)
			}
			buttons = append(buttons, Button{
				Name:    b.Name,
				Value:   uint64(b.Value),
				Address: addr,
				Command: uint32(b.Command),
			})
		}
		tables = append(tables, NewTable(p.Name, proto, buttons))
	}
	return tables, nil
}

// LoadFile reads fingerprint tables from a YAML file.
func LoadFile(path string) ([]*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	tables, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tables, nil
}
