package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satranslator/translator/internal/chat"
	"github.com/satranslator/translator/internal/nav"
)

const replHelp = `Type a message to translate it. Commands:
  /new            start a new conversation
  /history        list recent conversations
  /open <id>      continue a conversation
  /delete <id>    delete a conversation
  /from <code>    set the source language (auto detects it)
  /to <code>      set the target language
  /swap           swap source and target
  /languages      list language codes
  /quit           leave`

func newChatCmd() *cobra.Command {
	var from, to, open string

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Translate a message, or start an interactive session without one",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()

			path := nav.RouteRoot
			if open != "" {
				path = nav.ChatPath(open)
			}
			if err := a.enter(path); err != nil {
				return err
			}
			if err := a.applyPair(from, to); err != nil {
				return err
			}
			// the route decides the active conversation once history is loaded
			if err := a.chats.FetchHistory(ctx); err != nil && open != "" {
				return err
			}
			if open != "" && a.chats.Active().ID != open {
				return fmt.Errorf("%w: %s", chat.ErrNotFound, open)
			}

			if len(args) > 0 {
				return a.send(ctx, strings.Join(args, " "))
			}
			for _, m := range a.chats.Messages() {
				printMessage(a.out, m)
			}
			return a.repl(ctx)
		},
	}

	f := cmd.Flags()
	f.StringVar(&from, "from", "", "source language code, auto to detect (default en)")
	f.StringVar(&to, "to", "", "target language code (default zu)")
	f.StringVar(&open, "chat", "", "continue the conversation with this id")
	return cmd
}

func (a *app) applyPair(from, to string) error {
	if from != "" {
		if err := a.chats.SetSource(from); err != nil {
			return err
		}
	}
	if to != "" {
		if err := a.chats.SetTarget(to); err != nil {
			return err
		}
	}
	return nil
}

// send translates text with the selected pair and prints the reply
func (a *app) send(ctx context.Context, text string) error {
	pair := a.chats.Pair()
	if err := a.chats.SendMessage(ctx, text, pair.Source, pair.Target); err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) || errors.Is(err, chat.ErrUnknownLanguage) {
			return err
		}
		return reported(err)
	}
	msgs := a.chats.Messages()
	if n := len(msgs); n > 0 && !msgs[n-1].IsUser {
		printMessage(a.out, msgs[n-1])
	}
	return nil
}

func (a *app) repl(ctx context.Context) error {
	fmt.Fprintln(a.out, replHelp)
	for {
		pair := a.chats.Pair()
		line, err := a.prompt(fmt.Sprintf("[%s→%s] ", pair.Source, pair.Target))
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(a.out)
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		if line == "" {
			continue
		}

		quit, err := a.dispatch(ctx, line)
		if errors.Is(err, errNotSignedIn) {
			return err
		}
		if err != nil && !errors.Is(err, errReported) {
			fmt.Fprintf(a.out, "✗ %v\n", err)
		}
		if quit {
			return nil
		}
		// the gateway signs the user out when the token is rejected
		if a.store.Token() == "" {
			return errNotSignedIn
		}
	}
}

// dispatch runs one REPL line and reports whether the session should end
func (a *app) dispatch(ctx context.Context, line string) (bool, error) {
	if !strings.HasPrefix(line, "/") {
		return false, a.send(ctx, line)
	}

	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "quit", "exit", "q":
		return true, nil
	case "help":
		fmt.Fprintln(a.out, replHelp)
	case "new":
		if err := a.chats.StartNewConversation(); err != nil {
			return false, err
		}
		fmt.Fprintln(a.out, "New conversation.")
	case "history":
		printGroups(a.out, a.chats.Groups())
	case "open":
		if arg == "" {
			return false, errors.New("usage: /open <id>")
		}
		if err := a.chats.SelectByID(arg); err != nil {
			return false, err
		}
		for _, m := range a.chats.Messages() {
			printMessage(a.out, m)
		}
	case "delete":
		if arg == "" {
			arg = a.chats.Active().ID
		}
		if arg == "" {
			return false, errors.New("usage: /delete <id>")
		}
		if err := a.chats.DeleteConversation(ctx, arg); err != nil {
			if errors.Is(err, chat.ErrDeclined) {
				return false, nil
			}
			return false, reported(err)
		}
	case "from":
		return false, a.chats.SetSource(arg)
	case "to":
		return false, a.chats.SetTarget(arg)
	case "swap":
		before := a.chats.Pair()
		if after := a.chats.SwapLanguages(); after == before {
			fmt.Fprintln(a.out, "Auto-detect cannot be a target language.")
		}
	case "languages":
		printLanguages(a.out)
	default:
		return false, fmt.Errorf("unknown command /%s, try /help", name)
	}
	return false, nil
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List conversations from the last seven days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			if err := a.enter(nav.RouteRoot); err != nil {
				return err
			}
			if err := a.chats.FetchHistory(cmd.Context()); err != nil {
				return err
			}
			printGroups(a.out, a.chats.Groups())
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <chat-id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			if err := a.enter(nav.RouteRoot); err != nil {
				return err
			}
			err := a.chats.DeleteConversation(cmd.Context(), args[0])
			if errors.Is(err, chat.ErrDeclined) {
				fmt.Fprintln(a.out, "Cancelled.")
				return nil
			}
			return reported(err)
		},
	}
}

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List language codes",
		Args:  cobra.NoArgs,
		// no session needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			printLanguages(cmd.OutOrStdout())
		},
	}
}

func printLanguages(w io.Writer) {
	for _, l := range chat.Catalogue {
		note := ""
		if l.Code == chat.LanguageAuto {
			note = " (source only)"
		}
		fmt.Fprintf(w, "  %-5s %s%s\n", l.Code, l.Name, note)
	}
}

func printGroups(w io.Writer, groups []chat.Group) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "No conversations in the last seven days.")
		return
	}
	for _, g := range groups {
		fmt.Fprintln(w, g.Label)
		for _, item := range g.Items {
			title := item.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Fprintf(w, "  %-36s  %s  %s\n", item.ID, item.CreatedAt.Local().Format("15:04 Jan 2"), title)
		}
	}
}

func printMessage(w io.Writer, m chat.Message) {
	who := "bot"
	if m.IsUser {
		who = "you"
	}
	if m.DetectedLanguage != "" {
		who += " " + m.DetectedLanguage
	}
	fmt.Fprintf(w, "%s: %s\n", who, m.Text)
}
