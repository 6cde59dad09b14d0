// Soccerctl talks to a running robot's operator API.
//
//	soccerctl status
//	soccerctl vars
//	soccerctl funcs
//	soccerctl call drive speed=0.5 angle=0 rotation=0
//	soccerctl watch [variables|logs]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chamburr/soccer/internal/config"
	"github.com/chamburr/soccer/internal/httpc"
	"github.com/chamburr/soccer/pkg/debug"
	"github.com/chamburr/soccer/pkg/protocol"
)

const requestTimeout = 5 * time.Second

func main() {
	url := flag.String("url", config.RobotURL(), "Robot API base URL")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: soccerctl [-url URL] status|vars|funcs|call FN [k=v ...]|watch [variables|logs]")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	base := strings.TrimRight(*url, "/")
	args := flag.Args()

	var err error
	switch args[0] {
	case "status":
		err = status(ctx, base)
	case "vars":
		err = vars(ctx, base)
	case "funcs":
		err = funcs(ctx, base)
	case "call":
		err = call(ctx, base, args[1:])
	case "watch":
		stream := "variables"
		if len(args) > 1 {
			stream = args[1]
		}
		err = watch(ctx, base, stream)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func status(ctx context.Context, base string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var s protocol.StatusData
	if err := httpc.GetJSON(ctx, base+"/api/status", &s); err != nil {
		return err
	}

	fmt.Printf("strategy    %s\n", s.Strategy)
	fmt.Printf("started     %t\n", s.Started)
	fmt.Printf("goalie      %t\n", s.Goalie)
	fmt.Printf("heading     %.1f\n", s.Heading)
	fmt.Printf("coordinate  %s\n", position(s.Coordinate))
	fmt.Printf("ball        %s\n", position(s.Ball))
	fmt.Printf("goal        %s\n", position(s.Goal))
	fmt.Printf("motors      %v\n", s.Motors)
	return nil
}

func position(p protocol.Position) string {
	if !p.Valid {
		return fmt.Sprintf("(%.1f, %.1f) lost", p.X, p.Y)
	}
	return fmt.Sprintf("(%.1f, %.1f)", p.X, p.Y)
}

func vars(ctx context.Context, base string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var v protocol.VariablesData
	if err := httpc.GetJSON(ctx, base+"/api/variables", &v); err != nil {
		return err
	}
	printVariables(v.Values)
	return nil
}

func printVariables(values map[string]string) {
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Printf("%-24s %s\n", k, values[k])
	}
}

func funcs(ctx context.Context, base string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var list []debug.Function
	if err := httpc.GetJSON(ctx, base+"/api/functions", &list); err != nil {
		return err
	}
	for _, fn := range list {
		params := make([]string, len(fn.Args))
		for i, a := range fn.Args {
			params[i] = a.Name + " " + string(a.Kind)
		}
		fmt.Printf("%s(%s)\n", fn.Name, strings.Join(params, ", "))
	}
	return nil
}

// call accepts arguments either as separate k=v words or in the compact
// comma form.
func call(ctx context.Context, base string, args []string) error {
	if len(args) == 0 {
		return errors.New("call: missing function name")
	}

	raw, err := debug.ParseArgList(strings.Join(args[1:], ","))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var res protocol.ResultData
	err = httpc.PostJSON(ctx, base+"/api/functions/"+args[0], map[string]any{"args": raw}, &res)
	if res.Error != "" {
		return errors.New(res.Error)
	}
	if err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func watch(ctx context.Context, base, stream string) error {
	if stream != "variables" && stream != "logs" {
		return fmt.Errorf("watch: unknown stream %q", stream)
	}

	wsURL := "ws" + strings.TrimPrefix(base, "http") + "/ws/" + stream
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			continue
		}

		switch msg.Type {
		case protocol.TypeVariables:
			v, err := msg.GetVariablesData()
			if err != nil {
				continue
			}
			fmt.Printf("--- seq %d\n", v.Seq)
			printVariables(v.Values)
		case protocol.TypeLog:
			entry, err := msg.GetLogData()
			if err != nil {
				continue
			}
			printLog(entry)
		}
	}
}

func printLog(entry *protocol.LogData) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %s", entry.Time, entry.Level, entry.Message)

	keys := make([]string, 0, len(entry.Attrs))
	for k := range entry.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, _ := json.Marshal(entry.Attrs[k])
		fmt.Fprintf(&b, " %s=%s", k, v)
	}
	fmt.Println(b.String())
}
