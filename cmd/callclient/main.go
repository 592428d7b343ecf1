// Command callclient simulates a telephony gateway call against a running
// service: it opens the media WebSocket, streams mu-law audio in 20ms
// frames, prints outbound events and finally fetches the transcript.
package main

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// 8kHz mu-law: 160 bytes per 20ms frame.
const (
	frameBytes    = 160
	frameInterval = 20 * time.Millisecond
)

type gatewayEvent struct {
	Event    string          `json:"event"`
	StreamID string          `json:"streamId,omitempty"`
	Start    *startPayload   `json:"start,omitempty"`
	Media    *mediaPayload   `json:"media,omitempty"`
	Mark     json.RawMessage `json:"mark,omitempty"`
}

type startPayload struct {
	CallID   string `json:"callId"`
	StreamID string `json:"streamId"`
}

type mediaPayload struct {
	Payload string `json:"payload"`
}

func main() {
	server := flag.String("server", "localhost:8080", "service address")
	audioFile := flag.String("audio", "", "raw 8kHz mu-law file to stream (silence when empty)")
	seconds := flag.Int("seconds", 5, "seconds of audio to stream")
	flag.Parse()

	callID := "CA" + uuid.NewString()
	streamID := "MZ" + uuid.NewString()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+*server+"/media", nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Print whatever the service sends back: clear, paced media, mark.
	go func() {
		frames := 0
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ev gatewayEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				continue
			}
			switch ev.Event {
			case "media":
				frames++
			default:
				log.Printf("<- %s (after %d media frames)", ev.Event, frames)
				frames = 0
			}
		}
	}()

	send := func(ev gatewayEvent) {
		payload, err := json.Marshal(ev)
		if err != nil {
			log.Fatalf("marshal: %v", err)
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Fatalf("write: %v", err)
		}
	}

	log.Printf("-> start callId=%s", callID)
	send(gatewayEvent{Event: "start", Start: &startPayload{CallID: callID, StreamID: streamID}})

	audio := loadAudio(*audioFile, *seconds)
	for off := 0; off < len(audio); off += frameBytes {
		end := off + frameBytes
		if end > len(audio) {
			end = len(audio)
		}
		send(gatewayEvent{Event: "media", Media: &mediaPayload{
			Payload: base64.StdEncoding.EncodeToString(audio[off:end]),
		}})
		time.Sleep(frameInterval)
	}

	log.Print("-> stop")
	send(gatewayEvent{Event: "stop"})
	time.Sleep(500 * time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://%s/v1/transcript/%s", *server, callID))
	if err != nil {
		log.Fatalf("transcript: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	log.Printf("transcript: %s", body)
}

// loadAudio reads a raw mu-law file, or fabricates mu-law silence.
func loadAudio(path string, seconds int) []byte {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("read audio: %v", err)
		}
		return data
	}
	audio := make([]byte, seconds*8000)
	for i := range audio {
		audio[i] = 0xFF
	}
	return audio
}
