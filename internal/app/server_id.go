package app

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// GenerateHubID 集线器实例ID：优先环境变量 HUB_ID，否则 radio-hub-{hostname}-{uuid前8位}
func GenerateHubID() string {
	if id := os.Getenv("HUB_ID"); id != "" {
		return id
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("radio-hub-%s-%s", hostname, uuid.New().String()[:8])
}
