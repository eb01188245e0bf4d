package whisper

import (
	"fmt"
	"os"
	"path/filepath"
)

// Model weights (Hugging Face)
const modelBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// modelFiles maps selector names to ggml weight files.
var modelFiles = map[string]string{
	"tiny":           "ggml-tiny.bin",
	"tiny.en":        "ggml-tiny.en.bin",
	"base":           "ggml-base.bin",
	"base.en":        "ggml-base.en.bin",
	"small":          "ggml-small.bin",
	"small.en":       "ggml-small.en.bin",
	"medium":         "ggml-medium.bin",
	"medium.en":      "ggml-medium.en.bin",
	"large":          "ggml-large-v3.bin",
	"large-v3":       "ggml-large-v3.bin",
	"large-v3-turbo": "ggml-large-v3-turbo.bin",
}

// Models returns the sizes offered in the model selector, smallest first.
func Models() []string {
	return []string{"tiny", "base", "small", "medium", "large"}
}

// ModelFile returns the weight file name for a model.
func ModelFile(name string) (string, error) {
	file, ok := modelFiles[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	return file, nil
}

// ModelPath returns where a model lives in the cache directory.
func ModelPath(dir, name string) (string, error) {
	file, err := ModelFile(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, file), nil
}

// IsCached reports whether the model's weights are already on disk.
func IsCached(dir, name string) bool {
	path, err := ModelPath(dir, name)
	if err != nil {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular() && fi.Size() > 0
}
