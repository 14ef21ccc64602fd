//go:build tflite

package main

import _ "github.com/nvr-ai/go-classify/inference/tflite" // register backend
