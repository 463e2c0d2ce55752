package models

import "time"

// Camera is one agent derived from the configured IP range.
type Camera struct {
	Name     string `json:"id"`
	IP       string `json:"ip"`
	WebPort  int    `json:"web_port"`
	RTMPPort int    `json:"rtmp_port"`
	RTMPURL  string `json:"rtmp_url"`
	HLSURL   string `json:"hls_url"`

	// RTSPURL carries the camera credentials and never leaves the host.
	RTSPURL string `json:"-"`
}

type AgentState string

const (
	AgentLive       AgentState = "live"
	AgentConnecting AgentState = "connecting"
	AgentError      AgentState = "error"
	AgentOffline    AgentState = "offline"
)

type CameraStatus struct {
	Camera
	Status   AgentState `json:"status"`
	LastSeen *time.Time `json:"last_seen"`
	Error    string     `json:"error,omitempty"`
}
