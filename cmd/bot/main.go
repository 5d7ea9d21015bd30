package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"github.com/A-G0D/RotBound-Unity/internal/protocol"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrainview"
)

// bot is a headless viewer: it mirrors the tile map from PAINT/CLEAR and steers with INPUT.
func main() {
	var (
		url = flag.String("url", "ws://127.0.0.1:8080/v1/ws", "ws url")
		leg = flag.Duration("leg", 3*time.Second, "time spent walking in each direction")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	v := newViewer()
	msgs := make(chan []byte, 16)
	go func() {
		defer close(msgs)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msgs <- msg
		}
	}()

	steer := time.NewTicker(*leg)
	defer steer.Stop()
	step := 0
	if err := conn.WriteJSON(walk(step)); err != nil {
		logger.Fatalf("send INPUT: %v", err)
	}

	for {
		select {
		case <-stop:
			_ = conn.WriteJSON(protocol.InputMsg{Type: protocol.TypeInput, ProtocolVersion: protocol.Version})
			return
		case <-steer.C:
			step++
			_ = conn.WriteJSON(walk(step))
		case msg, ok := <-msgs:
			if !ok {
				logger.Printf("connection closed")
				return
			}
			line, err := v.handle(msg)
			if err != nil {
				logger.Fatalf("%v", err)
			}
			if line != "" {
				logger.Print(line)
			}
		}
	}
}

// walk cycles right, up, left, down.
func walk(step int) protocol.InputMsg {
	in := protocol.InputMsg{Type: protocol.TypeInput, ProtocolVersion: protocol.Version}
	switch step % 4 {
	case 0:
		in.Right = true
	case 1:
		in.Up = true
	case 2:
		in.Left = true
	default:
		in.Down = true
	}
	return in
}

type viewer struct {
	tiles *terrainview.Recorder
}

func newViewer() *viewer {
	return &viewer{tiles: terrainview.NewRecorder()}
}

// handle applies one server message and returns a log line, if any. An inconsistent
// PAINT/CLEAR stream is an error.
func (v *viewer) handle(msg []byte) (string, error) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return "", nil
	}
	switch base.Type {
	case protocol.TypeHello:
		var h protocol.HelloMsg
		if err := json.Unmarshal(msg, &h); err != nil {
			return "", err
		}
		p := h.WorldParams
		return fmt.Sprintf("HELLO session=%s run=%s seed=%d chunk_size=%d radius=%d", h.SessionID, h.RunID, p.Seed, p.ChunkSize, p.ChunkLoadRadius), nil

	case protocol.TypePaint:
		var m protocol.PaintMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return "", err
		}
		b := terrainview.Batch{Tick: m.Tick}
		for _, ct := range m.Chunks {
			p, err := terrainview.FromWirePaint(ct)
			if err != nil {
				return "", err
			}
			b.Paints = append(b.Paints, p)
		}
		if err := v.tiles.Apply(b); err != nil {
			return "", err
		}
		return fmt.Sprintf("PAINT tick=%d center=%v chunks=%d tiles=%d", m.Tick, m.Center, len(m.Chunks), v.tiles.Len()), nil

	case protocol.TypeClear:
		var m protocol.ClearMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return "", err
		}
		b := terrainview.Batch{Tick: m.Tick}
		for _, ref := range m.Chunks {
			c, err := terrainview.FromWireClear(ref)
			if err != nil {
				return "", err
			}
			b.Clears = append(b.Clears, c)
		}
		if err := v.tiles.Apply(b); err != nil {
			return "", err
		}
		return "", nil

	case protocol.TypeError:
		var m protocol.ErrorMsg
		_ = json.Unmarshal(msg, &m)
		return fmt.Sprintf("ERROR %s: %s", m.Code, m.Message), nil
	}
	return "", nil
}
