// truesight-probe replays frames from disk against a running truesight
// service, over HTTP or the device WebSocket, and prints the verdicts.
package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-truesight/internal/httpc"
	"github.com/teslashibe/go-truesight/internal/log"
	"github.com/teslashibe/go-truesight/pkg/calibration"
	"github.com/teslashibe/go-truesight/pkg/protocol"
	"golang.org/x/time/rate"
)

type options struct {
	server string
	dir    string
	room   string
	kind   protocol.FrameKind
	mode   string
	fps    float64
	loops  int
	watch  bool
}

func main() {
	var opts options
	var kind string
	flag.StringVar(&opts.server, "server", "http://localhost:8000", "truesight base URL")
	flag.StringVar(&opts.dir, "dir", "", "Directory of .jpg/.png frames to send (required)")
	flag.StringVar(&opts.room, "room", "probe", "Room to report frames for")
	flag.StringVar(&kind, "kind", "screen", "Frame kind: screen (overlay) or camera (person/phone)")
	flag.StringVar(&opts.mode, "mode", "http", "Transport: http or ws")
	flag.Float64Var(&opts.fps, "fps", 2, "Frames per second")
	flag.IntVar(&opts.loops, "loops", 1, "Times to replay the directory")
	flag.BoolVar(&opts.watch, "watch", false, "Also print dashboard alerts for the room")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	log.Init(*logLevel)
	opts.kind = protocol.FrameKind(kind)

	if opts.dir == "" {
		fmt.Fprintln(os.Stderr, "-dir is required")
		flag.Usage()
		os.Exit(2)
	}
	if opts.kind != protocol.KindScreen && opts.kind != protocol.KindCamera {
		fmt.Fprintf(os.Stderr, "unknown -kind %q\n", kind)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("probe failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	files, err := calibration.ImageFiles(opts.dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no frames in %s", opts.dir)
	}

	if opts.watch {
		go watchAlerts(ctx, opts)
	}

	limiter := rate.NewLimiter(rate.Limit(opts.fps), 1)
	switch opts.mode {
	case "http":
		return replayHTTP(ctx, opts, files, limiter)
	case "ws":
		return replayWS(ctx, opts, files, limiter)
	default:
		return fmt.Errorf("unknown mode %q", opts.mode)
	}
}

func replayHTTP(ctx context.Context, opts options, files []string, limiter *rate.Limiter) error {
	endpoint := strings.TrimRight(opts.server, "/") + "/api/detect-overlay"
	if opts.kind == protocol.KindCamera {
		endpoint = strings.TrimRight(opts.server, "/") + "/api/detect-humans"
	}

	for loop := 0; loop < opts.loops; loop++ {
		for _, path := range files {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				log.Warn("skipping frame", "path", path, "error", err)
				continue
			}

			req := map[string]any{
				"data":      base64.StdEncoding.EncodeToString(data),
				"timestamp": float64(time.Now().UnixMilli()) / 1000,
				"room":      opts.room,
			}
			var resp map[string]any
			if err := httpc.PostJSON(ctx, httpc.Client, endpoint, req, &resp); err != nil {
				log.Warn("request failed", "path", path, "error", err)
				continue
			}
			printResult(path, opts.kind, resp)
		}
	}
	return nil
}

func replayWS(ctx context.Context, opts options, files []string, limiter *rate.Limiter) error {
	wsURL, err := socketURL(opts.server, "/ws/room/"+opts.room, nil)
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msg, err := protocol.ParseMessage(data)
			if err != nil {
				continue
			}
			switch msg.Type {
			case protocol.TypeOverlay, protocol.TypeMalpractice:
				if res, err := msg.GetResultData(); err == nil {
					fmt.Printf("frame %d %s: %s\n", res.FrameID, msg.Type, res.Result)
				}
			case protocol.TypeError:
				if e, err := msg.GetErrorData(); err == nil {
					fmt.Printf("frame %d rejected: %s\n", e.FrameID, e.Message)
				}
			}
		}
	}()

	var id uint64
	for loop := 0; loop < opts.loops; loop++ {
		for _, path := range files {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				log.Warn("skipping frame", "path", path, "error", err)
				continue
			}
			id++
			msg, err := protocol.NewFrameMessage(opts.kind, data, id)
			if err != nil {
				return err
			}
			raw, err := msg.Bytes()
			if err != nil {
				return err
			}
			if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return fmt.Errorf("send frame: %w", err)
			}
		}
	}

	// Give the last replies a moment before closing
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	case <-ctx.Done():
	}
	return nil
}

func watchAlerts(ctx context.Context, opts options) {
	wsURL, err := socketURL(opts.server, "/ws/alerts", url.Values{"room": {opts.room}})
	if err != nil {
		log.Warn("alert watch disabled", "error", err)
		return
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		log.Warn("alert watch disabled", "error", err)
		return
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil || msg.Type != protocol.TypeAlert {
			continue
		}
		if a, err := msg.GetAlertData(); err == nil {
			fmt.Printf("ALERT %s room=%s condition=%s at=%s\n", a.ID, a.Room, a.Condition, a.Time.Format(time.RFC3339))
		}
	}
}

// socketURL turns an http(s) base URL into a ws(s) URL for path.
func socketURL(base, path string, query url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func printResult(path string, kind protocol.FrameKind, resp map[string]any) {
	name := path[strings.LastIndex(path, "/")+1:]
	if kind == protocol.KindCamera {
		fmt.Printf("%s: humans=%v malpractice=%v alerts=%v\n",
			name, resp["humans_detected"], resp["malpractice_detected"], resp["alerts"])
		return
	}
	fmt.Printf("%s: overlay=%v confidence=%v type=%v\n",
		name, resp["has_overlay"], resp["confidence"], resp["overlay_type"])
}
