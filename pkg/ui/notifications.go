package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"time"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// commandSender runs a platform notification tool built by args
type commandSender func(title, message string) []string

func (c commandSender) Send(title, message string) error {
	argv := c(title, message)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, argv[0], argv[1:]...).Run()
}

const toastScript = `[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
$t = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)
$n = $t.GetElementsByTagName("text")
$n.Item(0).AppendChild($t.CreateTextNode(%q)) | Out-Null
$n.Item(1).AppendChild($t.CreateTextNode(%q)) | Out-Null
[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("postarchiver").Show([Windows.UI.Notifications.ToastNotification]::new($t))`

var platformSenders = map[string]commandSender{
	"linux": func(title, message string) []string {
		return []string{"notify-send", "--app-name=postarchiver", title, message}
	},
	"darwin": func(title, message string) []string {
		return []string{"osascript", "-e", fmt.Sprintf("display notification %q with title %q", message, title)}
	},
	"windows": func(title, message string) []string {
		return []string{"powershell", "-NoProfile", "-NonInteractive", "-Command", fmt.Sprintf(toastScript, title, message)}
	},
}

// Notifier announces the end of a run on the console and, where the
// platform has a notification tool, on the desktop
type Notifier struct {
	sender NotificationSender
	out    io.Writer
}

// NewNotifier picks the sender for the current OS. Unknown platforms only
// get the console line.
func NewNotifier() *Notifier {
	n := &Notifier{out: os.Stdout}
	if s, ok := platformSenders[runtime.GOOS]; ok {
		n.sender = s
	}
	return n
}

func NewNotifierWithSender(sender NotificationSender, out io.Writer) *Notifier {
	return &Notifier{sender: sender, out: out}
}

func (n *Notifier) notify(paint func(string) string, title, message string) {
	fmt.Fprintf(n.out, "\n%s: %s\n", paint(title), paint(message))
	if n.sender != nil {
		// a missing notify-send is not worth failing the run for
		_ = n.sender.Send(title, message)
	}
}

// Summary announces a finished run
func (n *Notifier) Summary(s Summary) {
	const title = "postarchiver"
	switch {
	case s.Interrupted:
		n.notify(Red, title, fmt.Sprintf("Run for @%s interrupted after %d posts", s.Channel, s.Posts))
	case s.FailedDownloads > 0:
		n.notify(Yellow, title, fmt.Sprintf("Archived %d posts from @%s, %d image downloads failed", s.Posts, s.Channel, s.FailedDownloads))
	default:
		n.notify(Green, title, fmt.Sprintf("Archived %d posts from @%s", s.Posts, s.Channel))
	}
}
