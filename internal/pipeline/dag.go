// Package pipeline wires the transformation stages together and runs them
// in dependency order.
package pipeline

import (
	"fmt"

	"martflow/internal/intermediate"
	"martflow/internal/marts"
	"martflow/internal/reporting"
	"martflow/internal/source"
	"martflow/internal/staging"
)

// Layer groups models by role.
type Layer string

const (
	LayerSeed         Layer = "seed"
	LayerStaging      Layer = "staging"
	LayerIntermediate Layer = "intermediate"
	LayerMarts        Layer = "marts"
	LayerReporting    Layer = "reporting"
)

// Node is one model and the models it reads.
type Node struct {
	Name      string
	Layer     Layer
	DependsOn []string
}

// DAG is a topologically ordered list of models.
type DAG []Node

// Models is the fixed model graph. Every dependency appears before the
// model that reads it.
var Models = DAG{
	{Name: source.CustomersTable, Layer: LayerSeed},
	{Name: source.OrdersTable, Layer: LayerSeed},
	{Name: source.ProductsTable, Layer: LayerSeed},
	{Name: staging.CustomersModel, Layer: LayerStaging, DependsOn: []string{source.CustomersTable}},
	{Name: staging.OrdersModel, Layer: LayerStaging, DependsOn: []string{source.OrdersTable}},
	{Name: staging.ProductsModel, Layer: LayerStaging, DependsOn: []string{source.ProductsTable}},
	{Name: intermediate.OrderItemsModel, Layer: LayerIntermediate, DependsOn: []string{staging.OrdersModel, staging.ProductsModel}},
	{Name: intermediate.CustomerOrdersModel, Layer: LayerIntermediate, DependsOn: []string{staging.CustomersModel, intermediate.OrderItemsModel}},
	{Name: marts.CustomersModel, Layer: LayerMarts, DependsOn: []string{intermediate.CustomerOrdersModel}},
	{Name: marts.DailySalesModel, Layer: LayerMarts, DependsOn: []string{intermediate.OrderItemsModel}},
	{Name: reporting.SummaryModel, Layer: LayerReporting, DependsOn: []string{marts.DailySalesModel}},
}

// Validate checks names are unique and every dependency precedes its
// dependant.
func (d DAG) Validate() error {
	seen := make(map[string]bool, len(d))
	for _, n := range d {
		if seen[n.Name] {
			return fmt.Errorf("model %s is declared twice", n.Name)
		}
		for _, dep := range n.DependsOn {
			if !seen[dep] {
				return fmt.Errorf("model %s depends on %s, which is not declared before it", n.Name, dep)
			}
		}
		seen[n.Name] = true
	}
	return nil
}

// Node looks up a model by name.
func (d DAG) Node(name string) (Node, bool) {
	for _, n := range d {
		if n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}

// Lineage returns every model upstream of name, in DAG order.
func (d DAG) Lineage(name string) ([]string, error) {
	if _, ok := d.Node(name); !ok {
		return nil, fmt.Errorf("unknown model %q", name)
	}

	upstream := map[string]bool{}
	var walk func(string)
	walk = func(model string) {
		n, _ := d.Node(model)
		for _, dep := range n.DependsOn {
			if !upstream[dep] {
				upstream[dep] = true
				walk(dep)
			}
		}
	}
	walk(name)

	var out []string
	for _, n := range d {
		if upstream[n.Name] {
			out = append(out, n.Name)
		}
	}
	return out, nil
}

// InLayers returns the models of the given layers, in DAG order.
func (d DAG) InLayers(layers ...Layer) []Node {
	want := map[Layer]bool{}
	for _, l := range layers {
		want[l] = true
	}
	var out []Node
	for _, n := range d {
		if want[n.Layer] {
			out = append(out, n)
		}
	}
	return out
}

// Names returns the model names in order.
func (d DAG) Names() []string {
	names := make([]string, len(d))
	for i, n := range d {
		names[i] = n.Name
	}
	return names
}
