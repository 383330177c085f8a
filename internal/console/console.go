// Package console is the line-oriented shell over the client. It plays the
// role of the browser: it tracks the current route, renders notices and
// shows the delete confirmation as a prompt.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"ragdesk/internal/app"
	"ragdesk/internal/theme"
	"ragdesk/pkg/api"
	"ragdesk/pkg/auth"
	"ragdesk/pkg/chat"
	"ragdesk/pkg/documents"
	"ragdesk/pkg/notify"
	"ragdesk/pkg/upload"
)

var errQuit = errors.New("quit")

type Console struct {
	app    *app.App
	in     io.Reader
	out    io.Writer
	styles *theme.Styles

	mu       sync.Mutex
	location string
}

// New attaches the console to a as its navigator, view and notifier.
func New(a *app.App, in io.Reader, out io.Writer, styles *theme.Styles) *Console {
	c := &Console{
		app:      a,
		in:       in,
		out:      out,
		styles:   styles,
		location: auth.RouteHome,
	}

	notices := notify.NewWriter(out)
	notices.Style = styles.Notice
	a.Notifier.Attach(notices)
	a.Auth.SetSurface(c, c)
	return c
}

func (c *Console) Location() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.location
}

// Navigate switches route. The admin page is only reachable while logged
// in; otherwise it bounces to the landing page.
func (c *Console) Navigate(path string) {
	ctx := context.Background()
	if path == auth.RouteAdmin && !c.app.Auth.IsLoggedIn(ctx) {
		path = auth.RouteHome
	}

	c.mu.Lock()
	c.location = path
	c.mu.Unlock()

	c.println(c.styles.Title.Render("ragdesk " + path))
	switch path {
	case auth.RouteAdmin:
		c.app.Refresh(ctx)
		c.showDocuments()
		c.showStats()
	case auth.RouteChat:
		c.println(c.styles.Help.Render("Type a message and press enter. 'help' lists commands."))
	}
}

func (c *Console) CloseModals() {
	if _, ok := c.app.Delete.Pending(); ok {
		c.app.Delete.Dismiss()
	}
}

func (c *Console) ShowLogin() {
	c.println(c.styles.Help.Render("login <username> <password>  (any credentials work)"))
}

func (c *Console) Refresh(user *auth.User) {
	if user == nil {
		c.println(c.styles.Dim.Render("Not logged in"))
		return
	}
	c.println(c.styles.Dim.Render("Logged in as " + user.Username))
}

// Run reads commands until EOF, "quit" or ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	c.Refresh(c.currentUser(ctx))
	c.prompt()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			if err := c.Execute(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				c.app.Logger.Debug("command failed", "error", err)
			}
			c.prompt()
		}
	}
}

func (c *Console) currentUser(ctx context.Context) *auth.User {
	user, err := c.app.Auth.User(ctx)
	if err != nil {
		return nil
	}
	return user
}

func (c *Console) prompt() {
	label := c.Location()
	if p, ok := c.app.Delete.Pending(); ok {
		label = fmt.Sprintf("delete %s? [confirm/cancel]", p.Filename)
	}
	fmt.Fprint(c.out, c.styles.Prompt.Render(label+" > "))
}

// Execute runs one input line.
func (c *Console) Execute(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	fields := strings.Fields(line)
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	// While the delete modal is open, anything but an answer is a click
	// outside it.
	if _, ok := c.app.Delete.Pending(); ok {
		switch cmd {
		case "confirm", "yes", "y":
			return c.app.Delete.Confirm(ctx)
		case "cancel", "no", "n":
			c.app.Delete.Cancel()
			return nil
		default:
			c.app.Delete.Dismiss()
		}
	}

	switch cmd {
	case "help", "?":
		c.showHelp()
	case "quit", "exit":
		return errQuit
	case "go", "open":
		if len(args) != 1 {
			return c.usage("go </|/chat|/admin>")
		}
		c.Navigate(normalizeRoute(args[0]))
	case "login":
		username, password := arg(args, 0), arg(args, 1)
		return c.app.Auth.Login(ctx, username, password)
	case "logout":
		return c.app.Auth.Logout(ctx)
	case "register":
		c.app.Auth.Register()
	case "whoami":
		c.Refresh(c.currentUser(ctx))
	case "upload":
		return c.upload(ctx, args)
	case "docs", "documents":
		if err := c.app.Documents.Load(ctx); err != nil {
			return err
		}
		c.app.Documents.Filter(strings.Join(args, " "))
		c.showDocuments()
	case "filter", "search":
		c.app.Documents.Filter(strings.Join(args, " "))
		c.showDocuments()
	case "refresh":
		c.app.Refresh(ctx)
		c.app.Notifier.Notify(notify.Info, "Documents refreshed")
		c.showDocuments()
		c.showStats()
	case "stats":
		if err := c.app.Stats.Load(ctx); err != nil {
			return err
		}
		c.showStats()
	case "view":
		if len(args) != 1 {
			return c.usage("view <id>")
		}
		return c.view(api.DocumentID(args[0]))
	case "delete", "rm":
		if len(args) != 1 {
			return c.usage("delete <id>")
		}
		return c.openDelete(ctx, api.DocumentID(args[0]))
	case "export":
		if len(args) != 1 {
			return c.usage("export <file.csv|file.xlsx|file.html>")
		}
		return c.export(args[0])
	case "history":
		if err := c.app.Chat.LoadHistory(ctx); err != nil {
			c.app.Notifier.Notify(notify.Error, "Failed to load chat history")
			return err
		}
		c.showTranscript(c.app.Chat.Transcript().Bubbles())
	case "say":
		return c.say(ctx, strings.Join(args, " "))
	default:
		if c.Location() == auth.RouteChat {
			return c.say(ctx, line)
		}
		c.app.Notifier.Notify(notify.Warning, "Unknown command: "+cmd)
		return fmt.Errorf("unknown command: %s", cmd)
	}
	return nil
}

func normalizeRoute(route string) string {
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return route
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func (c *Console) usage(text string) error {
	c.app.Notifier.Notify(notify.Warning, "usage: "+text)
	return fmt.Errorf("usage: %s", text)
}

func (c *Console) upload(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return c.usage("upload <file>...")
	}

	files := make([]upload.File, 0, len(paths))
	for _, p := range paths {
		f, err := upload.OpenLocal(p)
		if err != nil {
			c.app.Notifier.Notify(notify.Error, "Cannot read "+p)
			continue
		}
		files = append(files, f)
	}

	report := c.app.Uploads.HandleFiles(ctx, files)
	c.app.Logger.Debug("upload finished",
		"uploaded", report.Count(upload.Uploaded),
		"rejected", report.Count(upload.Rejected),
		"failed", report.Count(upload.Failed))
	return nil
}

func (c *Console) view(id api.DocumentID) error {
	row, err := c.app.Documents.Preview(id)
	if errors.Is(err, api.ErrNotImplemented) {
		return nil
	}
	if err != nil {
		return err
	}
	c.println(fmt.Sprintf("%s  %s  %s  %d chunks  %s  %s",
		row.Filename, row.Type(), row.Size(), row.Chunks, row.Uploaded(), row.Status()))
	return nil
}

func (c *Console) openDelete(ctx context.Context, id api.DocumentID) error {
	row, ok := c.app.Documents.Find(id)
	if !ok {
		if err := c.app.Documents.Load(ctx); err != nil {
			return err
		}
		if row, ok = c.app.Documents.Find(id); !ok {
			c.app.Notifier.Notify(notify.Error, "Document not found: "+string(id))
			return fmt.Errorf("document %s not found", id)
		}
	}

	c.app.Delete.Open(row.ID, row.Filename)
	c.println(c.styles.Modal.Render(
		"Delete document\n" + row.Filename + "\nThis cannot be undone."))
	return nil
}

func (c *Console) export(path string) error {
	if err := documents.ExportFile(path, c.app.Documents.Visible()); err != nil {
		c.app.Notifier.Notify(notify.Error, "Export failed: "+err.Error())
		return err
	}
	c.app.Notifier.Notify(notify.Success, "Exported to "+path)
	return nil
}

func (c *Console) say(ctx context.Context, text string) error {
	ex, err := c.app.Chat.Start(text)
	if err != nil {
		return err
	}
	c.println(c.styles.Bubble(ex.User))
	c.println(c.styles.Bubble(ex.Placeholder))

	reply := ex.Finish(ctx)
	c.println(c.styles.Bubble(reply))
	return nil
}

func (c *Console) showDocuments() {
	if err := c.app.Documents.Render(c.out, c.styles.Header); err != nil {
		c.app.Logger.Error("failed to render documents", "error", err)
	}
}

func (c *Console) showStats() {
	if err := c.app.Stats.Render(c.out); err != nil {
		c.app.Logger.Error("failed to render stats", "error", err)
	}
}

func (c *Console) showTranscript(bubbles []chat.Bubble) {
	for _, b := range bubbles {
		c.println(c.styles.Bubble(b))
	}
}

func (c *Console) showHelp() {
	c.println(c.styles.Help.Render(strings.TrimSpace(`
go </|/chat|/admin>     switch page
login [user] [pass]     demo login (blank fields use demo/demo123)
logout | register | whoami
upload <file>...        upload pdf, txt or md files
docs [filter]           reload and show documents
filter <term>           filter the loaded documents
refresh | stats
view <id> | delete <id>
export <path>           write visible documents to csv, xlsx or html
say <message>           chat (on /chat plain text is sent)
history                 show this session's chat history
quit`)))
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}
