package ml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/AyushPandey510/Phis-Shield/internal/domain/service"
)

// ONNXModelClient implements port.ModelClient over a local onnxruntime
// session. The model artifact is a binary URL classifier exported with
// ZipMap disabled, so the probabilities output is a plain [1, 2] float
// tensor with the phishing class at index 1.
//
// Inference reuses one pre-allocated input/output tensor pair guarded by a
// mutex, so a client is safe for concurrent use but runs predictions one
// at a time.
type ONNXModelClient struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]

	mu sync.Mutex
}

// NewONNXModelClient loads the classifier at modelPath. libraryPath names
// the onnxruntime shared library; empty means probe the environment and
// common install locations.
func NewONNXModelClient(modelPath, libraryPath string) (*ONNXModelClient, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", modelPath, err)
	}

	libPath := resolveSharedLibraryPath(modelPath, libraryPath)
	if libPath == "" {
		return nil, fmt.Errorf("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or install the runtime")
	}
	ort.SetSharedLibraryPath(libPath)
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(service.FeatureCount)))
	if err != nil {
		return nil, fmt.Errorf("allocate input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 2))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"float_input"},
		[]string{"probabilities"},
		[]ort.Value{input},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &ONNXModelClient{session: session, input: input, output: output}, nil
}

// Predict runs one inference and returns the phishing class probability.
// onnxruntime has no cancellation hook, so an already-cancelled context is
// refused before the run rather than interrupting it.
func (c *ONNXModelClient) Predict(ctx context.Context, features []float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(features) != service.FeatureCount {
		return 0, fmt.Errorf("feature vector has width %d, want %d", len(features), service.FeatureCount)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	data := c.input.GetData()
	for i, f := range features {
		data[i] = float32(f)
	}

	if err := c.session.Run(); err != nil {
		return 0, fmt.Errorf("onnx run: %w", err)
	}

	probs := c.output.GetData()
	if len(probs) < 2 {
		return 0, fmt.Errorf("model returned %d probabilities, want 2", len(probs))
	}
	return float64(probs[1]), nil
}

// Close releases the session and its tensors.
func (c *ONNXModelClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var first error
	if err := c.session.Destroy(); err != nil {
		first = err
	}
	if err := c.input.Destroy(); err != nil && first == nil {
		first = err
	}
	if err := c.output.Destroy(); err != nil && first == nil {
		first = err
	}
	return first
}

// resolveSharedLibraryPath locates the onnxruntime shared library. An
// explicit path wins, then ONNXRUNTIME_SHARED_LIBRARY_PATH, then common
// names next to the model and in system locations.
func resolveSharedLibraryPath(modelPath, libraryPath string) string {
	if libraryPath != "" {
		return libraryPath
	}
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.so",
		"onnxruntime.so",
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
		"onnxruntime.dll",
	}
	dirs := []string{
		filepath.Dir(modelPath),
		filepath.Join(filepath.Dir(modelPath), "lib"),
		".",
		"/usr/local/lib",
		"/usr/lib",
		"/opt/homebrew/lib",
	}

	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
