// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

package main

import (
	"os"

	"github.com/goccy/go-yaml"
)

type redisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type vectorStoreConfig struct {
	Backend string `yaml:"backend"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

type blobConfig struct {
	Backend string `yaml:"backend"`

	// local backend
	Dir string `yaml:"dir"`

	// minio backend
	Endpoint string `yaml:"endpoint"`
	Bucket   string `yaml:"bucket"`
	Secure   bool   `yaml:"secure"`
}

type providersConfig struct {
	Embedder  string `yaml:"embedder"`
	Generator string `yaml:"generator"`
	OCR       string `yaml:"ocr"`
	Reranker  string `yaml:"reranker"`
}

type pipelineConfig struct {
	ChunkSize    int     `yaml:"chunk_size"`
	ChunkOverlap int     `yaml:"chunk_overlap"`
	TopK         int     `yaml:"top_k"`
	Temperature  float32 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	Model        string  `yaml:"model"`
	Rerank       bool    `yaml:"rerank"`

	MinWords         int    `yaml:"min_words"`
	WatermarkToken   string `yaml:"watermark_token"`
	MaxWatermarkHits int    `yaml:"max_watermark_hits"`
}

type workerConfig struct {
	Workers           int `yaml:"workers"`
	SessionTTLMinutes int `yaml:"session_ttl_minutes"`
}

type serverConfig struct {
	ListenHost     string `yaml:"listen_host"`
	ListenPort     int    `yaml:"listen_port"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

type config struct {
	Server serverConfig `yaml:"server"`
	Worker workerConfig `yaml:"worker"`

	Transport   redisConfig       `yaml:"transport"`
	VectorStore vectorStoreConfig `yaml:"vector_store"`
	Blob        blobConfig        `yaml:"blob"`
	Providers   providersConfig   `yaml:"providers"`
	Pipeline    pipelineConfig    `yaml:"pipeline"`
}

func defaultConfig() *config {
	return &config{
		Transport:   redisConfig{Addr: "localhost:6379"},
		VectorStore: vectorStoreConfig{Backend: "memory"},
		Blob:        blobConfig{Backend: "local", Dir: "uploads"},
		Providers:   providersConfig{Embedder: "openai", Generator: "openai"},
	}
}

// ReadConfig loads the yaml config at path. A missing file is not an error,
// everything falls back to defaults.
func ReadConfig(path string) (*config, error) {
	conf := defaultConfig()

	file, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return conf, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(file, conf); err != nil {
		return nil, err
	}
	return conf, nil
}
