package encoder

import (
	"fmt"
	"image"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	clipInputSize = 224
	clipNativeDim = 512
	clipModelFile = "clip_visual.onnx"
)

var (
	clipMean = [3]float32{0.48145466, 0.4578275, 0.40821073}
	clipStd  = [3]float32{0.26862954, 0.26130258, 0.27577711}
)

// CLIPEncoder runs a CLIP vision tower exported to ONNX, using a fixed-shape
// session: one input/output tensor pair, allocated once and reused across
// calls, guarded by a mutex since ONNX Runtime sessions are not safe for
// concurrent Run calls.
type CLIPEncoder struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// NewCLIPEncoder loads clip_visual.onnx from modelsDir.
func NewCLIPEncoder(modelsDir string, opts *ort.SessionOptions) (*CLIPEncoder, error) {
	modelPath := filepath.Join(modelsDir, clipModelFile)

	inputShape := ort.NewShape(1, 3, clipInputSize, clipInputSize)
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("clip: create input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, clipNativeDim)
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("clip: create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"pixel_values"},
		[]string{"image_embeds"},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("clip: create session: %w", err)
	}

	return &CLIPEncoder{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func (c *CLIPEncoder) Name() string { return "clip" }

func (c *CLIPEncoder) Dimension() int { return clipNativeDim }

func (c *CLIPEncoder) Embed(img *image.NRGBA) ([]float32, error) {
	chw := preprocessCHW(img, clipInputSize, clipMean, clipStd)

	c.mu.Lock()
	defer c.mu.Unlock()

	copy(c.inputTensor.GetData(), chw)
	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("clip: run: %w", err)
	}

	embedding := make([]float32, clipNativeDim)
	copy(embedding, c.outputTensor.GetData())
	if !l2Normalize(embedding) {
		return nil, ErrDegenerateEmbedding
	}
	return embedding, nil
}

func (c *CLIPEncoder) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.session.Destroy()
	}
	if c.inputTensor != nil {
		c.inputTensor.Destroy()
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
	}
	return nil
}
