package engine

import (
	"fmt"
	"io"
	"math"
)

// valueMap folds the Q-table down to one number per cell: the best value of
// any action at any fuel level. Cells never visited are NaN.
type valueMap struct {
	size int
	data [][]float64
}

func newValueMap(size int, q *qTable) *valueMap {
	data := make([][]float64, size)
	for y := 0; y < size; y++ {
		data[y] = make([]float64, size)
		for x := 0; x < size; x++ {
			data[y][x] = math.NaN()
		}
	}
	for key, row := range q.data {
		if key.Y < 0 || key.Y >= size || key.X < 0 || key.X >= size {
			continue
		}
		for _, value := range row {
			current := data[key.Y][key.X]
			if math.IsNaN(current) || value > current {
				data[key.Y][key.X] = value
			}
		}
	}
	return &valueMap{size: size, data: data}
}

func (v *valueMap) cloneData() [][]float64 {
	copyData := make([][]float64, v.size)
	for y := range v.data {
		copyData[y] = make([]float64, v.size)
		copy(copyData[y], v.data[y])
	}
	return copyData
}

func (v *valueMap) print(w io.Writer, env *Environment) {
	fmt.Fprintln(w, "value map:")
	for y := 0; y < v.size; y++ {
		for x := 0; x < v.size; x++ {
			pos := Position{X: x, Y: y}
			switch {
			case env.IsObstacle(pos):
				fmt.Fprintf(w, "%8s ", "#")
			case math.IsNaN(v.data[y][x]):
				fmt.Fprintf(w, "%8s ", ".")
			default:
				fmt.Fprintf(w, "%8.2f ", v.data[y][x])
			}
		}
		fmt.Fprintln(w)
	}
}

// ValueMap returns the best learned value per cell, indexed [y][x]. Cells the
// agent never stood on are NaN.
func (t *Trainer) ValueMap() [][]float64 {
	return newValueMap(t.env.size, t.qvalues).cloneData()
}

// PrintValueMap writes the value map as a table, marking obstacles with '#'
// and unvisited cells with '.'.
func (t *Trainer) PrintValueMap(w io.Writer) {
	newValueMap(t.env.size, t.qvalues).print(w, t.env)
}
