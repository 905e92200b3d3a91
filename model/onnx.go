package model

import (
	"errors"
	"fmt"
	"sync"

	gonnx "github.com/advancedclimatesystems/gonnx"
	"gorgonia.org/tensor"

	"landbid/game"
)

// ErrBadOutput is returned when a network does not produce one score per
// raw action.
var ErrBadOutput = errors.New("model output does not hold one score per action")

// Inputs names the tensors of an exported network.
type Inputs struct {
	State  string // [1, F] float32 features
	Graph  string // [1, 11, 11] float32 dominance plus identity
	Output string // empty picks the only output
}

func DefaultInputs() Inputs {
	return Inputs{State: "state", Graph: "graph"}
}

// ONNX scores positions with an exported network through the pure Go gonnx
// runtime. Networks are trained on labels standardised around 1/players with
// a spread of 1/4; when Players is set, outputs are mapped back to win rates.
type ONNX struct {
	model   *gonnx.Model
	inputs  Inputs
	Players int
	mu      sync.Mutex
}

// Load reads a network from disk. A missing or unreadable file is reported
// at once; there is no fallback scorer.
func Load(path string, inputs Inputs, players int) (*ONNX, error) {
	m, err := gonnx.NewModelFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	return &ONNX{model: m, inputs: inputs, Players: players}, nil
}

func (o *ONNX) Score(features []float32, graph []float32) ([]float64, error) {
	if len(graph) != game.NumRegions*game.NumRegions {
		return nil, fmt.Errorf("graph has %d entries, want %d", len(graph), game.NumRegions*game.NumRegions)
	}

	stateTensor := tensor.New(
		tensor.WithShape(1, len(features)),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(append([]float32(nil), features...)),
	)
	graphTensor := tensor.New(
		tensor.WithShape(1, game.NumRegions, game.NumRegions),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(append([]float32(nil), graph...)),
	)
	inputs := gonnx.Tensors{
		o.inputs.State: stateTensor,
		o.inputs.Graph: graphTensor,
	}

	o.mu.Lock()
	outputs, err := o.model.Run(inputs)
	o.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("run model: %w", err)
	}

	var out tensor.Tensor
	if o.inputs.Output != "" {
		out = outputs[o.inputs.Output]
	} else {
		for _, v := range outputs {
			out = v
			break
		}
	}
	if out == nil {
		return nil, fmt.Errorf("%w: no output tensor", ErrBadOutput)
	}

	scores, err := decode(out.Data())
	if err != nil {
		return nil, err
	}
	if o.Players > 0 {
		denormalize(scores, o.Players)
	}
	return scores, nil
}

func decode(data interface{}) ([]float64, error) {
	var scores []float64
	switch d := data.(type) {
	case []float32:
		scores = make([]float64, len(d))
		for i, v := range d {
			scores[i] = float64(v)
		}
	case []float64:
		scores = append([]float64(nil), d...)
	default:
		return nil, fmt.Errorf("%w: unexpected type %T", ErrBadOutput, data)
	}
	if len(scores) != game.NumActions {
		return nil, fmt.Errorf("%w: got %d values", ErrBadOutput, len(scores))
	}
	return scores, nil
}

// Standardisation applied to training labels.
const labelSpread = 0.25

func denormalize(scores []float64, players int) {
	mean := 1 / float64(players)
	for i, v := range scores {
		scores[i] = v*labelSpread + mean
	}
}

// Normalize maps win rates to the scale networks are trained on.
func Normalize(labels []float64, players int) []float64 {
	mean := 1 / float64(players)
	out := make([]float64, len(labels))
	for i, v := range labels {
		out[i] = (v - mean) / labelSpread
	}
	return out
}
