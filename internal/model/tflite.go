//go:build tflite

package model

import (
	"fmt"
	"sync"

	"github.com/mattn/go-tflite"
)

// TFLiteClassifier runs a .tflite export. Build with -tags tflite and the
// tensorflowlite_c library installed.
type TFLiteClassifier struct {
	mu          sync.Mutex
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	interpreter *tflite.Interpreter
	inputLen    int
	numClasses  int
}

func NewTFLiteClassifier(cfg Config) (*TFLiteClassifier, error) {
	m := tflite.NewModelFromFile(cfg.Path)
	if m == nil {
		return nil, fmt.Errorf("failed to load tflite model %s", cfg.Path)
	}
	c := &TFLiteClassifier{model: m}

	c.options = tflite.NewInterpreterOptions()
	if cfg.Threads > 0 {
		c.options.SetNumThread(cfg.Threads)
	}

	c.interpreter = tflite.NewInterpreter(c.model, c.options)
	if c.interpreter == nil {
		c.Close()
		return nil, fmt.Errorf("failed to create tflite interpreter")
	}
	if status := c.interpreter.AllocateTensors(); status != tflite.OK {
		c.Close()
		return nil, fmt.Errorf("failed to allocate tensors: %v", status)
	}

	input := c.interpreter.GetInputTensor(0)
	output := c.interpreter.GetOutputTensor(0)
	if input == nil || output == nil {
		c.Close()
		return nil, fmt.Errorf("model has no input or output tensor")
	}
	if input.Type() != tflite.Float32 || output.Type() != tflite.Float32 {
		c.Close()
		return nil, fmt.Errorf("expected float32 tensors, got %v in and %v out", input.Type(), output.Type())
	}

	c.inputLen = len(input.Float32s())
	c.numClasses = len(output.Float32s())
	if want := int(ShapeSize(cfg.InputShape)); want > 0 && want != c.inputLen {
		c.Close()
		return nil, fmt.Errorf("model expects %d input values, preprocessor produces %d", c.inputLen, want)
	}

	return c, nil
}

func (c *TFLiteClassifier) NumClasses() int { return c.numClasses }

func (c *TFLiteClassifier) Predict(input []float32) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(input) != c.inputLen {
		return nil, fmt.Errorf("expected %d input values, got %d", c.inputLen, len(input))
	}
	copy(c.interpreter.GetInputTensor(0).Float32s(), input)

	if status := c.interpreter.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("inference failed: %v", status)
	}

	outputData := c.interpreter.GetOutputTensor(0).Float32s()
	if len(outputData) != c.numClasses {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrLengthMismatch, len(outputData), c.numClasses)
	}
	probs := make([]float32, len(outputData))
	copy(probs, outputData)
	return probs, nil
}

func (c *TFLiteClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.interpreter != nil {
		c.interpreter.Delete()
		c.interpreter = nil
	}
	if c.options != nil {
		c.options.Delete()
		c.options = nil
	}
	if c.model != nil {
		c.model.Delete()
		c.model = nil
	}
	return nil
}
