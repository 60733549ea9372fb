package spoke

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/taoyao-code/radio-hub/internal/radio"
)

// 节点类型
const (
	KindButton   = "button"
	KindSensor   = "sensor"
	KindActuator = "actuator"
)

// NodeSpec 模拟器中一个节点的定义
type NodeSpec struct {
	Kind     string        `yaml:"kind"`
	ID       string        `yaml:"id"`
	MAC      radio.Addr    `yaml:"mac"`
	Buttons  int           `yaml:"buttons"`  // button: >1 时使用多索引记录
	Interval time.Duration `yaml:"interval"` // button/sensor 上报周期
	Slots    int           `yaml:"slots"`    // actuator: 位置数
}

// Fleet 模拟节点集合
type Fleet struct {
	Hub   radio.Addr `yaml:"hub"`
	Nodes []NodeSpec `yaml:"nodes"`
}

// LoadFleet 读取并校验 YAML 节点定义
func LoadFleet(path string) (*Fleet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fleet: %w", err)
	}
	var f Fleet
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fleet: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate 检查类型、ID 与地址唯一性
func (f *Fleet) Validate() error {
	if f.Hub.IsZero() {
		return errors.New("fleet: hub mac required")
	}
	seen := make(map[radio.Addr]string, len(f.Nodes))
	for i := range f.Nodes {
		n := &f.Nodes[i]
		n.Kind = strings.ToLower(n.Kind)
		switch n.Kind {
		case KindButton, KindSensor, KindActuator:
		default:
			return fmt.Errorf("fleet: node %d: unknown kind %q", i, n.Kind)
		}
		if n.ID == "" {
			return fmt.Errorf("fleet: node %d: id required", i)
		}
		if n.MAC.IsZero() || n.MAC.IsBroadcast() || n.MAC == f.Hub {
			return fmt.Errorf("fleet: node %s: invalid mac %s", n.ID, n.MAC)
		}
		if other, dup := seen[n.MAC]; dup {
			return fmt.Errorf("fleet: node %s: mac %s already used by %s", n.ID, n.MAC, other)
		}
		seen[n.MAC] = n.ID
		if n.Interval <= 0 && n.Kind != KindActuator {
			n.Interval = 2 * time.Second
		}
		if n.Buttons <= 0 {
			n.Buttons = 1
		}
		if n.Buttons > 255 {
			return fmt.Errorf("fleet: node %s: too many buttons %d", n.ID, n.Buttons)
		}
	}
	return nil
}
