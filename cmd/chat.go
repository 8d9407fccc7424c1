package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/synapse-chat/internal"
	"github.com/iksnae/synapse-chat/internal/session"
	"github.com/spf13/cobra"
)

var (
	chatConversation string
	chatImage        string
	searchWeb        bool
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat interactively, resuming your latest conversation",
	Long: `Start an interactive chat. The most recent conversation is resumed unless
--conversation selects another one.

Commands inside the chat:
  /new            start a new conversation
  /list           list conversations
  /load <id>      switch to a conversation
  /delete <id>    delete a conversation
  /quota          show guest usage
  /quit           leave`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, false)
	},
}

// newCmd represents the new command
var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Chat interactively in a new conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, true)
	},
}

func runChat(cmd *cobra.Command, fresh bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	a.hydrate(ctx)

	if !fresh {
		if chatConversation != "" {
			conv, err := resolveConversation(a, chatConversation)
			if err != nil {
				return err
			}
			a.manager.LoadConversation(conv.ID)
		} else if convs := a.manager.Conversations(); len(convs) > 0 {
			a.manager.LoadConversation(convs[0].ID)
		}
	}

	t := newTranscript(out)
	unsubscribe := a.manager.Subscribe(t.observe)
	defer unsubscribe()
	t.replay(a.manager.Snapshot())

	r := &repl{app: a, out: out, t: t, image: chatImage}
	r.greet()
	return r.run(ctx, cmd.InOrStdin())
}

type repl struct {
	app   *app
	out   io.Writer
	t     *transcript
	image string
}

func (r *repl) greet() {
	if cred, ok := r.app.account.Current(); ok {
		_, _ = fmt.Fprintln(r.out, dateStyle.Render(fmt.Sprintf("Signed in as %s (%s). Type /help for commands.", cred.User.Email, cred.User.PlanOrFree())))
	} else {
		_, _ = fmt.Fprintln(r.out, internal.QuotaBanner(r.app.quota.CurrentCount()))
	}
	_, _ = fmt.Fprintln(r.out)
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		_, _ = fmt.Fprint(r.out, youStyle.Render("› "))
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := r.command(ctx, line)
			if err != nil {
				_, _ = fmt.Fprintln(r.out, errorStyle.Render(err.Error()))
			}
			if quit {
				return nil
			}
			continue
		}
		if err := r.send(ctx, line); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			_, _ = fmt.Fprintln(r.out, errorStyle.Render(err.Error()))
		}
	}
}

func (r *repl) send(ctx context.Context, text string) error {
	outcome, err := submit(ctx, r.app, r.t, text, r.image)
	if err != nil {
		return err
	}
	r.image = ""
	if !outcome.Authenticated && internal.GuestQuotaLevel(outcome.GuestCount) != internal.QuotaNormal {
		_, _ = fmt.Fprintln(r.out, internal.QuotaBanner(outcome.GuestCount))
	}
	return nil
}

// submit sends one turn with a spinner and waits until the reply is written
func submit(ctx context.Context, a *app, t *transcript, text, image string) (*session.Outcome, error) {
	t.pause()
	var outcome *session.Outcome
	err := internal.ShowWaiting(ctx, "Thinking...", func() error {
		var err error
		outcome, err = a.manager.Submit(ctx, text, image)
		return err
	})
	t.resume(a.manager.Snapshot())

	switch {
	case errors.Is(err, internal.ErrQuotaExceeded):
		return nil, fmt.Errorf("you have used all %d free requests; run `synapse login` to keep chatting", internal.GuestLimit)
	case err != nil:
		return nil, err
	}
	if err := t.wait(ctx); err != nil {
		a.manager.FinalizeReveal()
		return outcome, err
	}
	return outcome, nil
}

func (r *repl) command(ctx context.Context, line string) (bool, error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		_, _ = fmt.Fprintln(r.out, "/new  /list  /load <id>  /delete <id>  /quota  /quit")
	case "/new":
		r.t.pause()
		r.app.manager.StartNewSession()
		r.t.replay(r.app.manager.Snapshot())
		_, _ = fmt.Fprintln(r.out, dateStyle.Render("New conversation"))
	case "/list":
		printConversationTable(r.out, r.app.manager.Conversations())
	case "/load":
		conv, err := resolveConversation(r.app, arg)
		if err != nil {
			return false, err
		}
		r.t.pause()
		r.app.manager.LoadConversation(conv.ID)
		_, _ = fmt.Fprintln(r.out, headerStyle.Render(conversationTitle(conv)))
		r.t.replay(r.app.manager.Snapshot())
	case "/delete":
		conv, err := resolveConversation(r.app, arg)
		if err != nil {
			return false, err
		}
		r.t.pause()
		err = deleteConversation(ctx, r.app, conv.ID)
		r.t.resume(r.app.manager.Snapshot())
		if err != nil {
			return false, err
		}
		_, _ = fmt.Fprintln(r.out, successStyle.Render("Deleted "+conv.ID))
	case "/quota":
		_, _ = fmt.Fprintln(r.out, internal.QuotaBanner(r.app.quota.CurrentCount()))
	default:
		return false, fmt.Errorf("unknown command %s (try /help)", name)
	}
	return false, nil
}

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(newCmd)
	for _, c := range []*cobra.Command{chatCmd, newCmd} {
		c.Flags().StringVar(&chatImage, "image", "", "Image (URL or data URI) attached to the first message")
		c.Flags().BoolVar(&searchWeb, "search-web", false, "Ask the service to search the web")
	}
	chatCmd.Flags().StringVarP(&chatConversation, "conversation", "c", "", "Resume a specific conversation by ID")
}
