// Command capture records a switch's manager event stream as a JSON
// event log, the format the replay command and the test fixtures
// consume. It can also sanitize an existing capture for sharing.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/sweeney/callwatch/internal/ami"
)

func main() {
	host := flag.String("host", "127.0.0.1", "Manager interface host")
	port := flag.Int("port", 5038, "Manager interface port")
	user := flag.String("user", "admin", "Manager username")
	secret := flag.String("secret", "", "Manager secret")
	out := flag.String("out", "", "Output file (default: <timestamp>.json)")
	sanitize := flag.String("sanitize", "", "Sanitize a capture file in place (keeps .bak)")
	flag.Parse()

	if *sanitize != "" {
		if err := sanitizeFile(*sanitize); err != nil {
			fmt.Fprintf(os.Stderr, "sanitize error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("sanitized:", *sanitize)
		return
	}

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "error: -secret is required")
		flag.Usage()
		os.Exit(1)
	}

	path := *out
	if path == "" {
		path = time.Now().Format("20060102-150405") + ".json"
	}

	if err := capture(net.JoinHostPort(*host, fmt.Sprintf("%d", *port)), *user, *secret, path); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func capture(addr, user, secret, path string) error {
	fmt.Printf("connecting to %s...\n", addr)

	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		conn.Close()
	}()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	defer f.Close()
	fmt.Printf("writing to %s\n", path)

	reader := bufio.NewReader(conn)
	banner, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading banner: %w", err)
	}
	fmt.Printf("banner: %s", banner)

	login := fmt.Sprintf("Action: Login\r\nUsername: %s\r\nSecret: %s\r\n\r\n", user, secret)
	if _, err := conn.Write([]byte(login)); err != nil {
		return fmt.Errorf("sending login: %w", err)
	}

	w := bufio.NewWriter(f)
	comment, _ := json.Marshal(fmt.Sprintf("Captured from %s at %s.", addr, time.Now().Format(time.RFC3339)))
	fmt.Fprintf(w, "[\n    %s", comment)

	fmt.Println("streaming events (ctrl+c to stop)...")
	parser := ami.NewParser(reader)
	count := 0
	for {
		evt, ok := parser.Next()
		if !ok {
			break
		}
		if evt.IsResponse() {
			continue
		}
		entry, err := json.Marshal(evt.Map())
		if err != nil {
			return fmt.Errorf("encoding event: %w", err)
		}
		fmt.Fprintf(w, ",\n    %s", entry)
		count++
	}

	fmt.Fprint(w, "\n]\n")
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing capture: %w", err)
	}
	fmt.Printf("captured %d events\n", count)
	return nil
}

var (
	ipPattern    = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	phonePattern = regexp.MustCompile(`\b1?\d{10}\b`)
)

// sanitizeFile redacts secrets, public IPs and full phone numbers from
// a JSON capture so it can be committed as a test fixture.
func sanitizeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path+".bak", data, 0o644); err != nil {
		return fmt.Errorf("creating backup: %w", err)
	}

	var entries []any
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parsing capture: %w", err)
	}

	for _, entry := range entries {
		headers, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		for key, val := range headers {
			s, ok := val.(string)
			if !ok {
				continue
			}
			switch {
			case strings.EqualFold(key, "Secret"), strings.EqualFold(key, "Password"):
				s = "REDACTED"
			case strings.Contains(key, "CallerID"), strings.Contains(key, "ConnectedLine"):
				s = phonePattern.ReplaceAllString(s, "15550001234")
			}
			s = ipPattern.ReplaceAllStringFunc(s, func(ip string) string {
				if ip == "127.0.0.1" {
					return ip
				}
				return "10.0.0.1"
			})
			headers[key] = s
		}
	}

	clean, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding capture: %w", err)
	}
	return os.WriteFile(path, append(clean, '\n'), 0o644)
}
