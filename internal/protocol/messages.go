package protocol

// BuildingMarker is the tile value used for building cells; terrain tiles carry their gradient
// index 0..255.
const BuildingMarker = 256

// HELLO (server -> viewer), first message on every viewer connection.
type HelloMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	RunID           string      `json:"run_id,omitempty"`
	WorldParams     WorldParams `json:"world_params"`
	Palette         Palette     `json:"palette"`
}

type WorldParams struct {
	TickRateHz      int        `json:"tick_rate_hz"`
	ChunkSize       int        `json:"chunk_size"`
	ChunkLoadRadius int        `json:"chunk_load_radius"`
	Seed            int64      `json:"seed"`
	NoiseKind       string     `json:"noise_kind"`
	NoiseScale      float64    `json:"noise_scale"`
	NoiseOffset     [2]float64 `json:"noise_offset"`
}

// Palette tells viewers how to colour tile values: shade i is grey i/255, buildings are
// BuildingRGB.
type Palette struct {
	Shades         int        `json:"shades"`
	BuildingMarker int        `json:"building_marker"`
	BuildingRGB    [3]float64 `json:"building_rgb"`
}

func DefaultPalette() Palette {
	return Palette{
		Shades:         256,
		BuildingMarker: BuildingMarker,
		BuildingRGB:    [3]float64{0.6, 0.4, 0.2},
	}
}

// PAINT (server -> viewer). One message per tick batch that loaded chunks.
type PaintMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Tick            uint64       `json:"tick"`
	Center          [2]int       `json:"center"`
	Chunks          []ChunkTiles `json:"chunks"`
}

// ChunkTiles lists Size*Size tile values in row-major order starting at Origin.
type ChunkTiles struct {
	CX     int    `json:"cx"`
	CY     int    `json:"cy"`
	Origin [2]int `json:"origin"`
	Size   int    `json:"size"`
	Values []int  `json:"values"`
}

// CLEAR (server -> viewer). Every tile of each listed chunk must be cleared.
type ClearMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Tick            uint64     `json:"tick"`
	Center          [2]int     `json:"center"`
	Chunks          []ChunkRef `json:"chunks"`
}

type ChunkRef struct {
	CX     int    `json:"cx"`
	CY     int    `json:"cy"`
	Origin [2]int `json:"origin"`
	Size   int    `json:"size"`
}

// INPUT (viewer -> server). Held movement keys; the latest message wins.
type InputMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Up              bool   `json:"up,omitempty"`
	Down            bool   `json:"down,omitempty"`
	Left            bool   `json:"left,omitempty"`
	Right           bool   `json:"right,omitempty"`
}

// ERROR (server -> viewer).
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

// BootstrapResponse is served on GET /v1/bootstrap before a viewer opens its socket.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	RunID           string      `json:"run_id,omitempty"`
	Tick            uint64      `json:"tick"`
	WorldParams     WorldParams `json:"world_params"`
	Palette         Palette     `json:"palette"`
}
