package runner

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a run of browser tests loaded from YAML:
//
//	name: storefront
//	tests:
//	  - name: home page
//	    url: http://localhost:8080/
//	    steps:
//	      - command: eyesOpen
//	        args: {appName: shop}
//	      - command: eyesCheckWindow
//	        args: home
//	      - command: eyesClose
type Scenario struct {
	Name  string     `yaml:"name"`
	Tests []TestCase `yaml:"tests"`
}

// TestCase is one test: navigate to URL, then run Steps in order.
type TestCase struct {
	Name  string `yaml:"name"`
	URL   string `yaml:"url"`
	Steps []Step `yaml:"steps"`
}

// Step invokes a registered command. Args is decoded by the command itself.
type Step struct {
	Command string    `yaml:"command"`
	Args    yaml.Node `yaml:"args"`
}

// LoadScenario reads and parses a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", path, err)
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	return sc, nil
}

// ParseScenario parses scenario YAML and checks that every test is named and
// every step names a command.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	for i, tc := range sc.Tests {
		if tc.Name == "" {
			return nil, fmt.Errorf("test %d: missing name", i)
		}
		for j, st := range tc.Steps {
			if st.Command == "" {
				return nil, fmt.Errorf("test %q step %d: missing command", tc.Name, j)
			}
		}
	}
	return &sc, nil
}
