package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nvoskan/equiterm/internal/model"
)

const chatHelp = `commands: /chat /viz /excel switch surface, /history shows the
current surface, /reset discards the workspace, /quit exits; anything else is
sent to the active surface.`

// cmdChat runs the interactive loop. Unlike the one-shot commands it keeps
// the inactivity monitor armed: every submitted line counts as activity, and
// the timeout callback ends the process after credentials are wiped.
func (a *app) cmdChat() {
	a.requireAuth()
	analysis := a.requireWorkspace()

	stop := a.ctl.StartMonitor(func() {
		fmt.Println()
		fmt.Println(warnStyle.Render("Session expired due to inactivity. Please login again."))
		os.Exit(1)
	})
	defer stop()

	fmt.Printf("workspace: %s\n%s\n\n", okStyle.Render(analysis.IndexName), metaStyle.Render(chatHelp))

	active := model.SurfaceChat
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Printf("%s> ", userStyle.Render(string(active)))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		a.ctl.Touch()

		switch line {
		case "/quit", "/exit":
			return
		case "/chat", "/viz", "/excel":
			active = model.Surface(strings.TrimPrefix(line, "/"))
			continue
		case "/history":
			fmt.Println(renderTranscript(active, a.conv.Get(active), a.conv.Analysis()))
			continue
		case "/reset":
			a.conv.Discard()
			fmt.Println("workspace discarded")
			return
		case "/help":
			fmt.Println(metaStyle.Render(chatHelp))
			continue
		}
		if strings.HasPrefix(line, "/") {
			fmt.Println(warnStyle.Render("unknown command " + line))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.APITimeout)
		reply, ok := a.runner.Submit(ctx, active, line)
		cancel()
		if !ok {
			fmt.Println(warnStyle.Render("nothing submitted (busy surface or workspace changed)"))
			continue
		}
		fmt.Println(renderMessage(*reply))
		a.saveAttachments(reply)
	}
}
