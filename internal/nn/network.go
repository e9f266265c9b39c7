package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"snakevo/internal/model"
)

const (
	DefaultHidden1  = 8
	DefaultHidden2  = 8
	StraightOutputs = 4
	AllOutputs      = 8
)

var (
	ErrGenomeLength = fmt.Errorf("%w: genome length does not match network topology", model.ErrConfiguration)
	ErrInputWidth   = fmt.Errorf("%w: input width does not match network topology", model.ErrConfiguration)
	ErrTopology     = fmt.Errorf("%w: invalid network topology", model.ErrConfiguration)
)

// Topology fixes the layer widths. The input and first hidden layer each get
// one extra bias unit, so the genome holds (in+1)*h1 + (h1+1)*h2 + h2*out
// weights.
type Topology struct {
	Inputs     int    `json:"inputs"`
	Hidden1    int    `json:"hidden1"`
	Hidden2    int    `json:"hidden2"`
	Outputs    int    `json:"outputs"`
	Activation string `json:"activation,omitempty"`
}

// DefaultTopology sizes a controller for the given input width with the
// 8/8 hidden layers and one output per movement choice.
func DefaultTopology(inputs int, diagonalMoves bool) Topology {
	outputs := StraightOutputs
	if diagonalMoves {
		outputs = AllOutputs
	}
	return Topology{
		Inputs:     inputs,
		Hidden1:    DefaultHidden1,
		Hidden2:    DefaultHidden2,
		Outputs:    outputs,
		Activation: DefaultActivation,
	}
}

func (t Topology) Validate() error {
	if t.Inputs <= 0 || t.Hidden1 <= 0 || t.Hidden2 <= 0 || t.Outputs <= 0 {
		return fmt.Errorf("%w: inputs=%d hidden1=%d hidden2=%d outputs=%d",
			ErrTopology, t.Inputs, t.Hidden1, t.Hidden2, t.Outputs)
	}
	if _, err := GetActivation(t.activation()); err != nil {
		return err
	}
	return nil
}

func (t Topology) GenomeLength() int {
	return (t.Inputs+1)*t.Hidden1 + (t.Hidden1+1)*t.Hidden2 + t.Hidden2*t.Outputs
}

func (t Topology) activation() string {
	if t.Activation == "" {
		return DefaultActivation
	}
	return t.Activation
}

// Weights are the three layer matrices, each rows=destination width and
// cols=source width (bias column last).
type Weights struct {
	InputHidden  *mat.Dense
	HiddenHidden *mat.Dense
	HiddenOutput *mat.Dense
}

// Unflatten splits genome into the three weight blocks, row-major, in layer
// order. The genome is copied; the matrices never alias it.
func Unflatten(t Topology, genome model.Genome) (Weights, error) {
	if err := t.Validate(); err != nil {
		return Weights{}, err
	}
	if len(genome) != t.GenomeLength() {
		return Weights{}, fmt.Errorf("%w: got=%d want=%d", ErrGenomeLength, len(genome), t.GenomeLength())
	}
	data := genome.Clone()
	n1 := (t.Inputs + 1) * t.Hidden1
	n2 := (t.Hidden1 + 1) * t.Hidden2
	return Weights{
		InputHidden:  mat.NewDense(t.Hidden1, t.Inputs+1, data[:n1]),
		HiddenHidden: mat.NewDense(t.Hidden2, t.Hidden1+1, data[n1:n1+n2]),
		HiddenOutput: mat.NewDense(t.Outputs, t.Hidden2, data[n1+n2:]),
	}, nil
}

// Flatten is the inverse of Unflatten.
func Flatten(w Weights) model.Genome {
	var out model.Genome
	for _, m := range []*mat.Dense{w.InputHidden, w.HiddenHidden, w.HiddenOutput} {
		if m == nil {
			continue
		}
		rows, _ := m.Dims()
		for i := 0; i < rows; i++ {
			out = append(out, m.RawRowView(i)...)
		}
	}
	return out
}

// Network is a two-hidden-layer feedforward controller. It keeps scratch
// buffers between calls, so one Network must not be shared across
// goroutines.
type Network struct {
	topology Topology
	weights  Weights
	hidden   ActivationFunc

	input   []float64
	h1      []float64
	h2      []float64
	logits  []float64
	inVec   *mat.VecDense
	h1Vec   *mat.VecDense
	h1Bias  *mat.VecDense
	h2Vec   *mat.VecDense
	outVec  *mat.VecDense
	softmax []float64
}

func New(t Topology, genome model.Genome) (*Network, error) {
	hidden, err := GetActivation(t.activation())
	if err != nil {
		return nil, err
	}
	weights, err := Unflatten(t, genome)
	if err != nil {
		return nil, err
	}
	n := &Network{
		topology: t,
		weights:  weights,
		hidden:   hidden,
		input:    make([]float64, t.Inputs+1),
		h1:       make([]float64, t.Hidden1+1),
		h2:       make([]float64, t.Hidden2),
		logits:   make([]float64, t.Outputs),
		softmax:  make([]float64, t.Outputs),
	}
	n.inVec = mat.NewVecDense(len(n.input), n.input)
	n.h1Vec = mat.NewVecDense(t.Hidden1, n.h1[:t.Hidden1])
	n.h1Bias = mat.NewVecDense(len(n.h1), n.h1)
	n.h2Vec = mat.NewVecDense(len(n.h2), n.h2)
	n.outVec = mat.NewVecDense(len(n.logits), n.logits)
	return n, nil
}

func (n *Network) Topology() Topology {
	return n.topology
}

// SetWeights replaces the weights with a new genome of the same topology.
func (n *Network) SetWeights(genome model.Genome) error {
	weights, err := Unflatten(n.topology, genome)
	if err != nil {
		return err
	}
	n.weights = weights
	return nil
}

func (n *Network) Weights() Weights {
	return n.weights
}

func (n *Network) Flatten() model.Genome {
	return Flatten(n.weights)
}

// FeedForward returns the softmax distribution over movement choices. The
// returned slice is owned by the caller.
func (n *Network) FeedForward(inputs []float64) ([]float64, error) {
	probs, err := n.forward(inputs)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), probs...), nil
}

// Decide returns the index of the most probable choice, ties going to the
// lowest index.
func (n *Network) Decide(inputs []float64) (int, error) {
	probs, err := n.forward(inputs)
	if err != nil {
		return 0, err
	}
	return Argmax(probs), nil
}

func (n *Network) forward(inputs []float64) ([]float64, error) {
	if len(inputs) != n.topology.Inputs {
		return nil, fmt.Errorf("%w: got=%d want=%d", ErrInputWidth, len(inputs), n.topology.Inputs)
	}
	copy(n.input, inputs)
	n.input[n.topology.Inputs] = 1

	n.h1Vec.MulVec(n.weights.InputHidden, n.inVec)
	n.activate(n.h1[:n.topology.Hidden1])
	n.h1[n.topology.Hidden1] = 1

	n.h2Vec.MulVec(n.weights.HiddenHidden, n.h1Bias)
	n.activate(n.h2)

	n.outVec.MulVec(n.weights.HiddenOutput, n.h2Vec)
	SoftmaxInto(n.softmax, n.logits)
	return n.softmax, nil
}

func (n *Network) activate(values []float64) {
	for i, v := range values {
		values[i] = n.hidden(v)
	}
}

// Softmax returns a probability distribution over logits.
func Softmax(logits []float64) []float64 {
	out := make([]float64, len(logits))
	SoftmaxInto(out, logits)
	return out
}

// SoftmaxInto writes the softmax of logits into dst, which must be at least
// as long. The max is subtracted before exponentiating. Non-finite logits
// still yield a distribution: NaN counts as -Inf, any +Inf entries share
// all mass equally, and all -Inf is uniform.
func SoftmaxInto(dst, logits []float64) {
	n := len(logits)
	if n == 0 {
		return
	}
	dst = dst[:n]
	for i, v := range logits {
		if math.IsNaN(v) {
			v = math.Inf(-1)
		}
		dst[i] = v
	}
	top := floats.Max(dst)
	switch {
	case math.IsInf(top, 1):
		count := 0.0
		for _, v := range dst {
			if math.IsInf(v, 1) {
				count++
			}
		}
		for i, v := range dst {
			if math.IsInf(v, 1) {
				dst[i] = 1 / count
			} else {
				dst[i] = 0
			}
		}
	case math.IsInf(top, -1):
		for i := range dst {
			dst[i] = 1 / float64(n)
		}
	default:
		for i, v := range dst {
			dst[i] = math.Exp(v - top)
		}
		floats.Scale(1/floats.Sum(dst), dst)
	}
}

// Argmax returns the first index holding the maximum, or -1 for an empty
// slice.
func Argmax(values []float64) int {
	if len(values) == 0 {
		return -1
	}
	return floats.MaxIdx(values)
}
