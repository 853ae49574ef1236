package model

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXClassifier runs an .onnx export through ONNX Runtime. The input and
// output tensors are allocated once and reused, so Predict is serialized.
type ONNXClassifier struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	numClasses   int
}

func NewONNXClassifier(cfg Config) (*ONNXClassifier, error) {
	inputName, outputName := cfg.InputName, cfg.OutputName
	inputShape, outputShape := cfg.InputShape, []int64{1, int64(cfg.NumClasses)}

	if cfg.MetadataPath != "" {
		metadata, err := LoadMetadata(cfg.MetadataPath)
		if err != nil {
			return nil, err
		}
		if metadata.InputName != "" {
			inputName = metadata.InputName
		}
		if metadata.OutputName != "" {
			outputName = metadata.OutputName
		}
		if len(metadata.InputShape) > 0 {
			inputShape = metadata.InputShape
		}
		if len(metadata.OutputShape) > 0 {
			outputShape = metadata.OutputShape
		}
	}
	if inputName == "" {
		inputName = "input"
	}
	if outputName == "" {
		outputName = "output"
	}

	if len(outputShape) < 2 || outputShape[0] != 1 {
		return nil, fmt.Errorf("unsupported output shape %v, want [1, classes]", outputShape)
	}
	if ShapeSize(inputShape) <= 0 {
		return nil, fmt.Errorf("invalid input shape %v", inputShape)
	}
	if want := ShapeSize(cfg.InputShape); want > 0 && want != ShapeSize(inputShape) {
		return nil, fmt.Errorf("model input shape %v does not match preprocessor shape %v", inputShape, cfg.InputShape)
	}

	if cfg.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.SharedLibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	c := &ONNXClassifier{numClasses: int(ShapeSize(outputShape[1:]))}
	var err error

	c.inputTensor, err = ort.NewEmptyTensor[float32](ort.NewShape(inputShape...))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	c.outputTensor, err = ort.NewEmptyTensor[float32](ort.NewShape(outputShape...))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	var options *ort.SessionOptions
	if cfg.Threads > 0 {
		options, err = ort.NewSessionOptions()
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to create session options: %w", err)
		}
		defer options.Destroy()
		if err := options.SetIntraOpNumThreads(cfg.Threads); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	c.session, err = ort.NewAdvancedSession(cfg.Path,
		[]string{inputName}, []string{outputName},
		[]ort.ArbitraryTensor{c.inputTensor}, []ort.ArbitraryTensor{c.outputTensor},
		options)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return c, nil
}

func (c *ONNXClassifier) NumClasses() int { return c.numClasses }

func (c *ONNXClassifier) Predict(input []float32) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	inputData := c.inputTensor.GetData()
	if len(input) != len(inputData) {
		return nil, fmt.Errorf("expected %d input values, got %d", len(inputData), len(input))
	}
	copy(inputData, input)

	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	outputData := c.outputTensor.GetData()
	if len(outputData) != c.numClasses {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrLengthMismatch, len(outputData), c.numClasses)
	}
	probs := make([]float32, len(outputData))
	copy(probs, outputData)
	return probs, nil
}

func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		c.session.Destroy()
		c.session = nil
	}
	if c.inputTensor != nil {
		c.inputTensor.Destroy()
		c.inputTensor = nil
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
		c.outputTensor = nil
	}
	return ort.DestroyEnvironment()
}
