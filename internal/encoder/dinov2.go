package encoder

import (
	"fmt"
	"image"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const dinov2InputSize = 224

var (
	// DINOv2 uses plain ImageNet normalization rather than CLIP's constants.
	dinov2Mean = [3]float32{0.485, 0.456, 0.406}
	dinov2Std  = [3]float32{0.229, 0.224, 0.225}

	dinov2Dims = map[string]int{
		"small": 384,
		"base":  768,
		"large": 1024,
	}
)

// DINOv2Encoder runs one of the DINOv2 ViT variants exported to ONNX. The
// variant determines both the model file and the native embedding width,
// since DINOv2's patch embedding dimension scales with backbone size.
type DINOv2Encoder struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	dim          int
}

// NewDINOv2Encoder loads dinov2_<variant>.onnx from modelsDir. variant must
// be one of "small", "base", "large".
func NewDINOv2Encoder(modelsDir, variant string, opts *ort.SessionOptions) (*DINOv2Encoder, error) {
	dim, ok := dinov2Dims[variant]
	if !ok {
		return nil, fmt.Errorf("dinov2: unknown variant %q", variant)
	}
	modelPath := filepath.Join(modelsDir, fmt.Sprintf("dinov2_%s.onnx", variant))

	inputShape := ort.NewShape(1, 3, dinov2InputSize, dinov2InputSize)
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("dinov2: create input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, int64(dim))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("dinov2: create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"pixel_values"},
		[]string{"pooler_output"},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("dinov2: create session: %w", err)
	}

	return &DINOv2Encoder{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		dim:          dim,
	}, nil
}

func (d *DINOv2Encoder) Name() string { return "dinov2" }

func (d *DINOv2Encoder) Dimension() int { return d.dim }

func (d *DINOv2Encoder) Embed(img *image.NRGBA) ([]float32, error) {
	chw := preprocessCHW(img, dinov2InputSize, dinov2Mean, dinov2Std)

	d.mu.Lock()
	defer d.mu.Unlock()

	copy(d.inputTensor.GetData(), chw)
	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("dinov2: run: %w", err)
	}

	embedding := make([]float32, d.dim)
	copy(embedding, d.outputTensor.GetData())
	if !l2Normalize(embedding) {
		return nil, ErrDegenerateEmbedding
	}
	return embedding, nil
}

func (d *DINOv2Encoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session != nil {
		d.session.Destroy()
	}
	if d.inputTensor != nil {
		d.inputTensor.Destroy()
	}
	if d.outputTensor != nil {
		d.outputTensor.Destroy()
	}
	return nil
}
