package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/quicksapp/quicks/internal/config"
	"github.com/quicksapp/quicks/internal/model"
)

func main() {
	dataDirFlag := flag.String("data-dir", "", "data directory (default ~/.quicks)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	localFlag := flag.Bool("local", false, "serve from cache only, never fetch")
	flag.Parse()

	dataDir := *dataDirFlag
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	c := newClient(config.SocketPath(dataDir))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch args[0] {
	case "status":
		cmdStatus(ctx, c, *jsonFlag)
	case "profile":
		cmdProfile(ctx, c, *jsonFlag)
	case "chats":
		cmdChats(ctx, c, *jsonFlag, *localFlag)
	case "messages":
		requireArgs(args, 2, "quicksctl messages <chat-id>")
		cmdMessages(ctx, c, args[1], *jsonFlag, *localFlag)
	case "post":
		requireArgs(args, 3, "quicksctl post <chat-id> <body>")
		cmdPost(ctx, c, args[1], strings.Join(args[2:], " "), *jsonFlag)
	case "read":
		requireArgs(args, 2, "quicksctl read <chat-id> [message-id...]")
		cmdRead(ctx, c, args[1], args[2:], *jsonFlag)
	case "delete":
		requireArgs(args, 3, "quicksctl delete <chat-id> <message-id>")
		cmdDelete(ctx, c, args[1], args[2], *jsonFlag)
	case "tasks":
		cmdTasks(ctx, c, args[1:], *jsonFlag, *localFlag)
	case "events":
		cmdEvents(c)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: quicksctl [--data-dir <dir>] [--json] [--local] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                        Show daemon status")
	fmt.Fprintln(os.Stderr, "  profile                       Show the profile user")
	fmt.Fprintln(os.Stderr, "  chats                         List chats")
	fmt.Fprintln(os.Stderr, "  messages <chat-id>            List a chat's messages")
	fmt.Fprintln(os.Stderr, "  post <chat-id> <body>         Post a message")
	fmt.Fprintln(os.Stderr, "  read <chat-id> [id...]        Mark messages read (all when no ids)")
	fmt.Fprintln(os.Stderr, "  delete <chat-id> <id>         Delete a message")
	fmt.Fprintln(os.Stderr, "  tasks list [mode]             List tasks, optionally by mode")
	fmt.Fprintln(os.Stderr, "  tasks add <mode> <title>      Create a task")
	fmt.Fprintln(os.Stderr, "  tasks done <id>               Mark a task completed")
	fmt.Fprintln(os.Stderr, "  tasks undone <id>             Mark a task not completed")
	fmt.Fprintln(os.Stderr, "  tasks rm <id>                 Delete a task")
	fmt.Fprintln(os.Stderr, "  events                        Stream daemon events")
}

func requireArgs(args []string, n int, usage string) {
	if len(args) < n {
		fmt.Fprintln(os.Stderr, "usage: "+usage)
		os.Exit(1)
	}
}

// client talks HTTP to the daemon over its unix socket.
type client struct {
	hc   *http.Client
	base string
}

func newClient(socketPath string) *client {
	return &client{
		base: "http://quicksd",
		hc: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, "unix", socketPath)
				},
			},
		},
	}
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("cannot reach daemon (is quicksd running?): %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	if out != nil {
		return json.Unmarshal(raw, out)
	}
	return nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func parseID(s, what string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fatal(fmt.Errorf("invalid %s %q", what, s))
	}
	return id
}

func localQuery(local bool) string {
	if local {
		return "?local=true"
	}
	return ""
}

func cmdStatus(ctx context.Context, c *client, jsonOut bool) {
	var resp struct {
		State             string `json:"state"`
		FreshnessWindowMs int64  `json:"freshnessWindowMs"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/status", nil, &resp); err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(resp)
		return
	}
	fmt.Printf("State:  %s\n", resp.State)
	fmt.Printf("Window: %dms\n", resp.FreshnessWindowMs)
}

func cmdProfile(ctx context.Context, c *client, jsonOut bool) {
	var user model.User
	if err := c.do(ctx, http.MethodGet, "/v1/profile", nil, &user); err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(user)
		return
	}
	fmt.Printf("%d  %s\n", user.ID, user.Name)
}

func cmdChats(ctx context.Context, c *client, jsonOut, local bool) {
	var resp struct {
		Chats []model.Chat `json:"chats"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/chats"+localQuery(local), nil, &resp); err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(resp.Chats)
		return
	}
	for _, chat := range resp.Chats {
		marker := " "
		if !chat.IsReaded {
			marker = "*"
		}
		fmt.Printf("%s %4d  %-40s  %s\n", marker, chat.ID, chat.Label, chat.LastMessage)
	}
}

func cmdMessages(ctx context.Context, c *client, chatArg string, jsonOut, local bool) {
	chatID := parseID(chatArg, "chat id")
	var resp struct {
		Messages []model.Message `json:"messages"`
	}
	path := fmt.Sprintf("/v1/chats/%d/messages%s", chatID, localQuery(local))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(resp.Messages)
		return
	}
	for _, m := range resp.Messages {
		marker := " "
		if !m.IsReaded {
			marker = "*"
		}
		fmt.Printf("%s %4d  [%s] <%d> %s\n", marker, m.ID, m.CreatedAt, m.SenderID, m.Body)
	}
}

func cmdPost(ctx context.Context, c *client, chatArg, body string, jsonOut bool) {
	chatID := parseID(chatArg, "chat id")
	var resp struct {
		Messages []model.Message `json:"messages"`
	}
	path := fmt.Sprintf("/v1/chats/%d/messages", chatID)
	if err := c.do(ctx, http.MethodPost, path, map[string]any{"body": body}, &resp); err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(resp.Messages)
		return
	}
	fmt.Printf("posted message %d\n", resp.Messages[len(resp.Messages)-1].ID)
}

func cmdRead(ctx context.Context, c *client, chatArg string, idArgs []string, jsonOut bool) {
	chatID := parseID(chatArg, "chat id")
	ids := make([]int64, 0, len(idArgs))
	for _, a := range idArgs {
		ids = append(ids, parseID(a, "message id"))
	}
	var resp struct {
		Messages []model.Message `json:"messages"`
	}
	req := map[string]any{"ids": ids, "coversLast": len(ids) == 0}
	if len(ids) == 0 {
		// No ids means read everything currently cached.
		var listing struct {
			Messages []model.Message `json:"messages"`
		}
		path := fmt.Sprintf("/v1/chats/%d/messages?local=true", chatID)
		if err := c.do(ctx, http.MethodGet, path, nil, &listing); err != nil {
			fatal(err)
		}
		all := make([]int64, 0, len(listing.Messages))
		for _, m := range listing.Messages {
			all = append(all, m.ID)
		}
		req["ids"] = all
	}
	path := fmt.Sprintf("/v1/chats/%d/read", chatID)
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(resp.Messages)
		return
	}
	fmt.Println("ok")
}

func cmdDelete(ctx context.Context, c *client, chatArg, msgArg string, jsonOut bool) {
	chatID := parseID(chatArg, "chat id")
	msgID := parseID(msgArg, "message id")
	var resp struct {
		Messages []model.Message `json:"messages"`
	}
	path := fmt.Sprintf("/v1/chats/%d/messages/%d", chatID, msgID)
	if err := c.do(ctx, http.MethodDelete, path, nil, &resp); err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(resp.Messages)
		return
	}
	fmt.Printf("deleted, %d messages remain\n", len(resp.Messages))
}

func cmdTasks(ctx context.Context, c *client, args []string, jsonOut, local bool) {
	if len(args) == 0 {
		args = []string{"list"}
	}
	switch args[0] {
	case "list":
		path := "/v1/tasks" + localQuery(local)
		if len(args) >= 2 {
			sep := "?"
			if local {
				sep = "&"
			}
			path += sep + "mode=" + strings.ReplaceAll(args[1], " ", "+")
		}
		var resp struct {
			Tasks []model.Task `json:"tasks"`
		}
		if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
			fatal(err)
		}
		if jsonOut {
			outputJSON(resp.Tasks)
			return
		}
		for _, task := range resp.Tasks {
			box := "[ ]"
			if task.IsCompleted {
				box = "[x]"
			}
			fmt.Printf("%s %4d  %-16s  %s (due %s)\n", box, task.ID, task.TaskMode, task.Title, task.DueDate)
		}
	case "add":
		requireArgs(args, 3, "quicksctl tasks add <mode> <title>")
		var resp struct {
			Tasks []model.Task `json:"tasks"`
		}
		body := model.Task{Title: strings.Join(args[2:], " "), TaskMode: model.TaskMode(args[1])}
		if err := c.do(ctx, http.MethodPost, "/v1/tasks", body, &resp); err != nil {
			fatal(err)
		}
		if jsonOut {
			outputJSON(resp.Tasks)
			return
		}
		fmt.Printf("created task %d\n", resp.Tasks[len(resp.Tasks)-1].ID)
	case "done", "undone":
		requireArgs(args, 2, "quicksctl tasks "+args[0]+" <id>")
		id := parseID(args[1], "task id")
		path := fmt.Sprintf("/v1/tasks/%d/complete", id)
		req := map[string]any{"completed": args[0] == "done"}
		if err := c.do(ctx, http.MethodPost, path, req, nil); err != nil {
			fatal(err)
		}
		fmt.Println("ok")
	case "rm":
		requireArgs(args, 2, "quicksctl tasks rm <id>")
		id := parseID(args[1], "task id")
		if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/v1/tasks/%d", id), nil, nil); err != nil {
			fatal(err)
		}
		fmt.Println("ok")
	default:
		fmt.Fprintf(os.Stderr, "unknown tasks command: %s\n", args[0])
		os.Exit(1)
	}
}

// cmdEvents streams the daemon's SSE feed until interrupted. No request
// deadline here, the stream runs until the daemon or the user ends it.
func cmdEvents(c *client) {
	resp, err := c.hc.Get(c.base + "/v1/events")
	if err != nil {
		fatal(fmt.Errorf("cannot reach daemon (is quicksd running?): %w", err))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(os.Stdout, resp.Body)
}
