package whisperx

// Config selects the WhisperX model and device. Zero values fall back to the
// large-v3 English model on CPU.
type Config struct {
	Model       string
	CUDAEnabled bool
}

// UVXCommand launches WhisperX without a permanent install.
const UVXCommand = "uvx"

const (
	DefaultModel = "large-v3"

	CUDAIndexURL = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL = "https://pypi.org/simple"

	CPUDevice  = "cpu"
	CUDADevice = "cuda"
)

const (
	language          = "en"
	batchSize         = "4"
	segmentResolution = "sentence"
	cpuComputeType    = "float32"
)

func (c Config) model() string {
	if c.Model != "" {
		return c.Model
	}
	return DefaultModel
}

