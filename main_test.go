package main

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLogLevelFromEnv(t *testing.T) {
	tests := []struct {
		value string
		want  zerolog.Level
	}{
		{"", zerolog.Disabled},
		{"0", zerolog.Disabled},
		{"false", zerolog.Disabled},
		{"1", zerolog.DebugLevel},
		{"true", zerolog.DebugLevel},
		{"verbose", zerolog.DebugLevel},
	}
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.Disabled) })

	for _, tt := range tests {
		t.Run("DEBUG_STOREKEEPER="+tt.value, func(t *testing.T) {
			t.Setenv("DEBUG_STOREKEEPER", tt.value)
			configureLogLevelFromEnv()
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
}

func TestSetupInterruptListener(t *testing.T) {
	stopChan := setupInterruptListener()
	require.NotNil(t, stopChan)
	assert.Equal(t, 1, cap(stopChan))
}

func TestHandleInterrupt(t *testing.T) {
	for _, sig := range []os.Signal{os.Interrupt, syscall.SIGTERM} {
		t.Run(sig.String(), func(t *testing.T) {
			stopChan := make(chan os.Signal, 1)
			logged := make(chan string, 1)
			exited := make(chan int, 1)

			go handleInterrupt(stopChan, func(msg string) { logged <- msg }, func(code int) { exited <- code })
			stopChan <- sig

			select {
			case code := <-exited:
				assert.Equal(t, 1, code)
				assert.Equal(t, "Interrupt signal received. Exiting...", <-logged)
			case <-time.After(time.Second):
				t.Fatal("exit was not called")
			}
		})
	}
}
