package config

import (
	"os"
	"testing"

	"github.com/ekusiadadus/ek-transcript/internal/models"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Pipeline.ChunkDuration != DefaultChunkDuration {
		t.Errorf("ChunkDuration = %v, want default %v", cfg.Pipeline.ChunkDuration, DefaultChunkDuration)
	}
	if cfg.Pipeline.STTLanguage != DefaultSTTLanguage {
		t.Errorf("STTLanguage = %q, want default %q", cfg.Pipeline.STTLanguage, DefaultSTTLanguage)
	}
	if cfg.WorkerConcurrency != 4 {
		t.Errorf("WorkerConcurrency = %d, want 4", cfg.WorkerConcurrency)
	}
}

func TestLoadReadsEnvOverrides(t *testing.T) {
	t.Setenv("CHUNK_DURATION", "600")
	t.Setenv("STT_LANGUAGE", "en")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("S3_FORCE_PATH_STYLE", "true")

	cfg := Load()
	if cfg.Pipeline.ChunkDuration != 600 {
		t.Errorf("ChunkDuration = %v, want 600", cfg.Pipeline.ChunkDuration)
	}
	if cfg.Pipeline.STTLanguage != "en" {
		t.Errorf("STTLanguage = %q, want %q", cfg.Pipeline.STTLanguage, "en")
	}
	if cfg.Pipeline.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.Pipeline.MaxRetries)
	}
	if !cfg.S3ForcePath {
		t.Error("S3ForcePath should be true")
	}
}

func TestLoadIgnoresUnparseableEnvValues(t *testing.T) {
	t.Setenv("CHUNK_DURATION", "not-a-number")
	cfg := Load()
	if cfg.Pipeline.ChunkDuration != DefaultChunkDuration {
		t.Errorf("ChunkDuration = %v, want default %v when env value is unparseable", cfg.Pipeline.ChunkDuration, DefaultChunkDuration)
	}
}

func TestLoadFileOverlaysPipelineFields(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()

	_, err = f.WriteString("pipeline:\n  chunk_duration: 300\n  stt_language: \"fr\"\n")
	if err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := LoadFile(f.Name())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Pipeline.ChunkDuration != 300 {
		t.Errorf("ChunkDuration = %v, want 300 from file overlay", cfg.Pipeline.ChunkDuration)
	}
	if cfg.Pipeline.STTLanguage != "fr" {
		t.Errorf("STTLanguage = %q, want %q from file overlay", cfg.Pipeline.STTLanguage, "fr")
	}
	// Fields not present in the file keep their default.
	if cfg.Pipeline.OverlapDuration != DefaultOverlapDuration {
		t.Errorf("OverlapDuration = %v, want default %v to be preserved", cfg.Pipeline.OverlapDuration, DefaultOverlapDuration)
	}
}

func TestLoadFileEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile(\"\"): %v", err)
	}
	if cfg.Pipeline.ChunkDuration != DefaultChunkDuration {
		t.Errorf("expected defaults with empty path, got %v", cfg.Pipeline.ChunkDuration)
	}
}

func TestMergePipelineOnlyOverridesNonZeroFields(t *testing.T) {
	dst := models.PipelineConfig{
		ChunkDuration: 510,
		STTLanguage:   "ja",
		MaxRetries:    3,
	}
	mergePipeline(&dst, models.PipelineConfig{STTLanguage: "en"})

	if dst.ChunkDuration != 510 {
		t.Errorf("ChunkDuration should be untouched, got %v", dst.ChunkDuration)
	}
	if dst.STTLanguage != "en" {
		t.Errorf("STTLanguage = %q, want overridden %q", dst.STTLanguage, "en")
	}
	if dst.MaxRetries != 3 {
		t.Errorf("MaxRetries should be untouched, got %d", dst.MaxRetries)
	}
}
