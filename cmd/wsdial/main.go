package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quietcore/wsdial/internal/config"
	"github.com/quietcore/wsdial/internal/ws"
)

func main() {
	var cfgPath string
	var sendText string
	flag.StringVar(&cfgPath, "config", "", "path to config.json (default: /etc/wsdial/config.json, /opt/wsdial/config.json, ./config.json)")
	flag.StringVar(&sendText, "send", "", "optional text message to send once the handshake completes")
	flag.Parse()

	cfg, cfgFile, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	fmt.Printf("[wsdial] config=%s run_id=%s target=%s\n", cfgFile, cfg.RunID, cfg.TargetURL)

	opts := ws.Options{
		HandshakeTimeout:   time.Duration(cfg.HandshakeTimeoutMS) * time.Millisecond,
		MaxFrameSize:       cfg.MaxFrameSizeBytes,
		HeartbeatInterval:  time.Duration(cfg.HeartbeatMS) * time.Millisecond,
		PongTimeout:        time.Duration(cfg.PongTimeoutMS) * time.Millisecond,
		Extensions:         cfg.Extensions,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}
	if len(cfg.ExtraHeaders) > 0 {
		opts.Header = make(map[string][]string, len(cfg.ExtraHeaders))
		for k, v := range cfg.ExtraHeaders {
			opts.Header[k] = []string{v}
		}
	}

	done := make(chan struct{})
	var conn *ws.Conn
	conn = ws.NewConn(ws.Callbacks{
		OnOpen: func() {
			fmt.Printf("[wsdial] %s open\n", cfg.RunID)
			if sendText != "" {
				if o := conn.SendText(sendText); !o.OK() {
					fmt.Printf("[wsdial] %s send failed: %s\n", cfg.RunID, o.Error())
				}
			}
		},
		OnText: func(s string) {
			fmt.Printf("[wsdial] %s text: %s\n", cfg.RunID, s)
		},
		OnBinary: func(b []byte) {
			fmt.Printf("[wsdial] %s binary: %d bytes\n", cfg.RunID, len(b))
		},
		OnClose: func() {
			fmt.Printf("[wsdial] %s closed\n", cfg.RunID)
			close(done)
		},
		OnError: func(o ws.Outcome) {
			fmt.Printf("[wsdial] %s error: %s\n", cfg.RunID, o.Error())
		},
	}, opts)

	if outcome := conn.Connect(cfg.TargetURL); !outcome.OK() {
		log.Fatalf("[wsdial] %s connect failed: %s", conn.ID(), outcome.Error())
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		fmt.Printf("[wsdial] %s received %v: disconnecting...\n", cfg.RunID, s)
		conn.Disconnect()
	}()

	<-done
}
