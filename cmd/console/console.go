package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/firewatch/firewatch/internal/dashboard"
	"github.com/firewatch/firewatch/internal/geo"
	"github.com/firewatch/firewatch/internal/geocode"
	"github.com/firewatch/firewatch/internal/routing"
)

const helpText = `Commands:
  nodes | gateways | incidents | pins   list map entities
  search <text>                         suggest places (debounced)
  pick <n>                              fly to suggestion n
  goto <lat, lon>                       center the map and mark the point for a pin
  click <lat, lon>                      click the map
  panel open|close                      toggle the routing panel
  calc | clear                          calculate or clear the manual route
  route node|incident|pin <id>          route from the nearest gateway
  name <text> | desc <text>             fill the pin form
  save | cancel                         submit or discard the pin form
  rm <pin id>                           remove a saved location
  view | status                         show viewport or planner state
  help | quit
`

// console is a line-oriented front end for a dashboard session. Callbacks
// from the session arrive on other goroutines, so every write goes through
// printf.
type console struct {
	session *dashboard.Session
	prompt  bool

	mu  sync.Mutex
	out io.Writer
}

func newConsole(out io.Writer, prompt bool) *console {
	return &console{out: out, prompt: prompt}
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.out, format, args...)
}

func (c *console) table(write func(w io.Writer)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	write(tw)
	_ = tw.Flush()
}

// Notify implements dashboard.Notifier.
func (c *console) Notify(n dashboard.Notification) {
	c.printf("[%s] %s\n", n.Level, n.Message)
}

func (c *console) showSuggestions(results []geocode.Suggestion) {
	if len(results) == 0 {
		return
	}
	c.table(func(w io.Writer) {
		for i, s := range results {
			fmt.Fprintf(w, "  %d)\t%s\t%s\n", i+1, s.DisplayName, s.Point)
		}
	})
}

func (c *console) showTransition(from, to dashboard.State) {
	c.printf("planner: %s -> %s\n", from, to)
}

// run reads commands from in until EOF, quit, or ctx is done.
func (c *console) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		if c.prompt {
			c.printf("firewatch> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if c.exec(ctx, scanner.Text()) {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// exec runs one command line and reports whether the console should exit.
func (c *console) exec(ctx context.Context, line string) bool {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)
	s := c.session

	switch cmd {
	case "":
	case "help", "?":
		c.printf("%s", helpText)
	case "quit", "exit":
		return true

	case "nodes":
		c.listNodes()
	case "gateways":
		c.listGateways()
	case "incidents":
		c.table(func(w io.Writer) {
			for _, inc := range s.Incidents() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", inc.ID, inc.Status, inc.Name, inc.Barangay, inc.Point)
			}
		})
	case "pins":
		c.table(func(w io.Writer) {
			for _, loc := range s.Pins.Locations() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", loc.ID, loc.Name, loc.Point, loc.Description)
			}
		})

	case "search":
		s.Suggestions.Type(rest)
	case "pick":
		n, err := strconv.Atoi(rest)
		results := s.Suggestions.Results()
		if err != nil || n < 1 || n > len(results) {
			c.printf("pick a suggestion between 1 and %d\n", len(results))
			break
		}
		s.SelectSuggestion(results[n-1])
		c.showView()

	case "goto":
		if _, err := s.GoToCoordinates(rest); err == nil {
			c.showView()
		}
	case "click":
		p, err := geo.ParsePair(rest)
		if err != nil {
			c.printf("usage: click <lat, lon>\n")
			break
		}
		s.HandleMapClick(p)

	case "panel":
		switch rest {
		case "open":
			s.Planner.OpenPanel()
		case "close":
			s.Planner.ClosePanel()
		default:
			c.printf("usage: panel open|close\n")
		}
	case "calc":
		route, err := s.Planner.Calculate(ctx)
		c.showRoute(route, err)
	case "clear":
		s.Planner.Clear()
	case "route":
		c.route(ctx, rest)

	case "name":
		s.Placement.SetName(rest)
	case "desc":
		s.Placement.SetDescription(rest)
	case "save":
		_ = s.Placement.Submit(ctx)
	case "cancel":
		s.Placement.Cancel()
	case "rm":
		_ = s.Pins.Remove(ctx, rest)

	case "view":
		c.showView()
	case "status":
		c.showStatus()

	default:
		c.printf("unknown command %q, type help\n", cmd)
	}
	return false
}

func (c *console) route(ctx context.Context, args string) {
	kind, id, _ := strings.Cut(args, " ")
	id = strings.TrimSpace(id)

	var (
		route *routing.Route
		err   error
	)
	switch kind {
	case "node":
		route, err = c.session.SelectNode(ctx, id)
	case "incident":
		route, err = c.session.SelectIncident(ctx, id)
	case "pin":
		route, err = c.session.SelectPin(ctx, id)
	default:
		c.printf("usage: route node|incident|pin <id>\n")
		return
	}
	if errors.Is(err, dashboard.ErrUnknownEntity) {
		c.printf("%v\n", err)
		return
	}
	c.showRoute(route, err)
}

// showRoute prints a resolved route. Failures were already reported through
// the notifier.
func (c *console) showRoute(route *routing.Route, err error) {
	if err != nil || route == nil {
		return
	}
	c.printf("route: %s, %s, %d points\n", route.DistanceLabel(), route.DurationLabel(), len(route.Path))
}

func (c *console) listNodes() {
	nodes := c.session.Feed.Nodes()
	if len(nodes) == 0 {
		c.printf("no nodes reported yet\n")
		return
	}
	c.table(func(w io.Writer) {
		fmt.Fprintln(w, "ID\tSTATUS\tTEMP\tHUMIDITY\tGATEWAY\tLAST SEEN")
		for _, n := range nodes {
			fmt.Fprintf(w, "%s\t%s\t%.1f°C\t%.0f%%\t%s\t%s\n",
				n.ID, n.Status, n.Temperature, n.Humidity, n.GatewayID, n.LastSeen.Local().Format("15:04:05"))
		}
	})
}

func (c *console) listGateways() {
	c.table(func(w io.Writer) {
		fmt.Fprintln(w, "ID\tSTATUS\tACTIVE\tNAME")
		for _, gs := range c.session.GatewayStatuses() {
			fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\n", gs.ID, gs.Status, gs.ActiveCount, gs.NodeCount, gs.Name)
		}
	})
}

func (c *console) showView() {
	v := c.session.Viewport.State()
	c.printf("view: center %s zoom %d\n", v.Center, v.Zoom)
}

func (c *console) showStatus() {
	snap := c.session.Planner.Snapshot()
	c.printf("planner: %s, panel open: %t\n", snap.State, snap.PanelOpen)
	if snap.Start != nil {
		c.printf("  start: %s\n", snap.Start)
	}
	if snap.End != nil {
		c.printf("  end:   %s\n", snap.End)
	}
	if snap.Route != nil {
		c.showRoute(snap.Route, nil)
	}
	d := c.session.Placement.Draft()
	if d.Point != nil {
		c.printf("pin draft: %q at %s (open: %t)\n", d.Name, d.Point, d.Open)
	}
}
