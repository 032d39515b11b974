// Command schoolform is the school-registration form client: a terminal
// form with a conversational assistant that can fill it over text chat or a
// duplex voice session.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wingservice/privateschool/pkg/assist"
	"github.com/wingservice/privateschool/pkg/form"
	"github.com/wingservice/privateschool/pkg/live"
	"github.com/wingservice/privateschool/pkg/registry"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevelFromEnv(),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(ctx, logger)
	defer app.shutdown()

	fmt.Println("School registration assistant. Type /help for commands; anything else is sent to the assistant.")
	app.printNext()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !app.handleLine(ctx, line) {
				return
			}
		}
	}
}

type app struct {
	logger *slog.Logger

	state    *form.State
	voice    *live.Voice
	chat     *assist.Chat
	registry *registry.Client

	apiKey    string
	chatModel string
}

func newApp(ctx context.Context, logger *slog.Logger) *app {
	a := &app{
		logger:    logger,
		state:     form.NewState(),
		apiKey:    firstEnv("SCHOOLFORM_API_KEY", "GEMINI_API_KEY"),
		chatModel: envOr("SCHOOLFORM_CHAT_MODEL", assist.DefaultChatModel),
	}

	a.registry = registry.NewClient(
		envOr("SCHOOLFORM_REGISTRY_URL", "http://localhost:8080"),
		os.Getenv("SCHOOLFORM_REGISTRY_API_KEY"),
	)

	a.state.SetHooks(form.Hooks{
		OnChange: func(r form.Record) {
			fmt.Printf("  [form] next: %s\n", form.NextMissingField(r))
		},
		Submit: func() { a.submit(ctx) },
	})

	a.voice = live.NewVoice(live.VoiceConfig{
		URL:    envOr("SCHOOLFORM_VOICE_URL", "ws://localhost:9090/v1/voice"),
		APIKey: a.apiKey,
		Model:  envOr("SCHOOLFORM_VOICE_MODEL", "voice-1"),
		State:  a.state,
		Logger: logger,
		OnState: func(s live.VoiceState) {
			fmt.Printf("  [voice] %s\n", s)
		},
		OnCaption: func(c string) {
			fmt.Printf("  [caption] %s\n", c)
		},
		OnError: func(e *assist.Error) {
			fmt.Printf("  [voice] problem: %s\n", voiceErrorMessage(e))
		},
	})
	return a
}

func (a *app) shutdown() {
	a.voice.Stop()
}

// handleLine processes one input line; returns false to exit.
func (a *app) handleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}
	if !strings.HasPrefix(line, "/") {
		a.sendChat(ctx, line, "")
		return true
	}

	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case "/help":
		printHelp()
	case "/set":
		key, value, ok := strings.Cut(rest, " ")
		if !ok || !form.KnownKey(key) {
			fmt.Println("  usage: /set <field> <value>; fields:", fieldKeys())
			return true
		}
		a.state.Apply(map[string]string{key: strings.TrimSpace(value)})
	case "/attach":
		key, path, ok := strings.Cut(rest, " ")
		if !ok || !form.KnownKey(key) {
			fmt.Println("  usage: /attach <field> <path>")
			return true
		}
		value, err := form.AttachmentFromFile(strings.TrimSpace(path))
		if err != nil {
			fmt.Printf("  could not read attachment: %v\n", err)
			return true
		}
		a.state.Apply(map[string]string{key: value})
	case "/image":
		path, text, ok := strings.Cut(rest, " ")
		if !ok {
			fmt.Println("  usage: /image <path> <message>")
			return true
		}
		a.sendChat(ctx, strings.TrimSpace(text), strings.TrimSpace(path))
	case "/show":
		a.printForm()
	case "/next":
		a.printNext()
	case "/voice":
		if err := a.voice.Toggle(ctx); err != nil {
			a.logger.Debug("voice toggle", "error", err)
		}
	case "/submit":
		a.state.TriggerSubmit()
	case "/reset":
		a.state.Reset()
	case "/quit", "/exit":
		return false
	default:
		fmt.Println("  unknown command; /help lists commands")
	}
	return true
}

func (a *app) sendChat(ctx context.Context, text, imagePath string) {
	if text == "" {
		return
	}
	if a.chat == nil {
		chat, err := assist.NewChat(ctx, assist.ChatConfig{
			APIKey: a.apiKey,
			Model:  a.chatModel,
			State:  a.state,
			Logger: a.logger,
		})
		if err != nil {
			fmt.Println("  assistant: Sorry, the assistant is not available right now.")
			fmt.Println("  assistant:", assist.SupportLine)
			a.logger.Error("chat unavailable", "error", err)
			return
		}
		a.chat = chat
	}

	var image []byte
	var mime string
	if imagePath != "" {
		value, err := form.AttachmentFromFile(imagePath)
		if err != nil {
			fmt.Printf("  could not read image: %v\n", err)
			return
		}
		mime, image, err = form.ParseDataURI(value)
		if err != nil {
			fmt.Printf("  could not read image: %v\n", err)
			return
		}
	}

	for _, turn := range a.chat.Send(ctx, text, image, mime) {
		switch turn.Role {
		case "status":
			fmt.Println("  *", turn.Text)
		default:
			fmt.Println("  assistant:", turn.Text)
		}
	}
}

func (a *app) submit(ctx context.Context) {
	record := a.state.Snapshot()
	if next := form.NextMissingField(record); next != form.Ready {
		fmt.Printf("  cannot submit yet: the %s is still missing\n", next)
		return
	}

	resp := a.registry.Submit(ctx, record)
	if !resp.Success {
		fmt.Println("  submission failed:", resp.Message)
		for field, msg := range resp.Errors {
			fmt.Printf("    %s: %s\n", field, msg)
		}
		return
	}
	fmt.Printf("  %s (reference %s)\n", resp.Message, resp.RowID)
	a.state.Reset()
}

func (a *app) printForm() {
	record := a.state.Snapshot()
	for _, f := range form.FieldOrder {
		fmt.Printf("  %-28s %s\n", f.Label+":", record.Get(f.Key))
	}
	for _, f := range form.AttachmentOrder {
		mark := "missing"
		if record.Get(f.Key) != "" {
			mark = "attached"
		}
		if f.Key == form.KeyCertUpperPrimary && record.Level != form.LevelUpperPrimary {
			mark = "not required"
		}
		fmt.Printf("  %-28s %s\n", f.Label+":", mark)
	}
}

func (a *app) printNext() {
	next := form.NextMissingField(a.state.Snapshot())
	if next == form.Ready {
		fmt.Println("  the form is complete; /submit sends it to the registry")
		return
	}
	fmt.Printf("  next: %s\n", next)
}

func printHelp() {
	fmt.Print(`  /set <field> <value>    fill one field
  /attach <field> <path>  attach a photo or certificate
  /image <path> <msg>     send a chat message with an image
  /show                   print the form
  /next                   print the next missing field
  /voice                  start or stop the voice session
  /submit                 submit the registration
  /reset                  clear the form
  /quit                   exit
`)
}

func voiceErrorMessage(e *assist.Error) string {
	switch e.Kind {
	case assist.ErrCredentialMissing:
		return "no API key is configured; set SCHOOLFORM_API_KEY"
	case assist.ErrDeviceUnsupported:
		return "this machine has no usable microphone or speaker"
	case assist.ErrPermissionDenied:
		return "microphone access was denied"
	case assist.ErrServerRejected:
		return "the voice service rejected the session: " + e.Message
	default:
		return "the voice connection failed; please try again"
	}
}

func fieldKeys() string {
	keys := make([]string, 0, len(form.FieldOrder))
	for _, f := range form.FieldOrder {
		keys = append(keys, f.Key)
	}
	return strings.Join(keys, ", ")
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func logLevelFromEnv() slog.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("SCHOOLFORM_LOG_LEVEL"))) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
