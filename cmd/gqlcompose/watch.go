package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/compiler"
	"github.com/syssam/gqlcompose/compiler/infer"
	sqlstore "github.com/syssam/gqlcompose/dialect/sql"
)

var (
	watchOut      string
	watchDebounce time.Duration
)

func init() {
	watchCmd.Flags().StringVarP(&watchOut, "out", "o", "schema.graphql", "File the schema SDL is written to after each build")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 100*time.Millisecond, "Delay before a burst of changes triggers a build")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild the schema when type definitions or nodes change",
	Long: `Build the schema, then watch the project files. A change to a type
definition file runs a full build; a change to a node file updates the store
and rebuilds only the node types whose nodes changed.

Examples:
  gqlcompose watch
  gqlcompose watch -o public/schema.graphql --debounce 250ms`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p, err := openProject(ctx)
		if err != nil {
			return err
		}
		defer p.close()

		nodes, err := p.cfg.LoadNodes()
		if err != nil {
			return err
		}
		ns, err := newNodeSync(p.store, nodes)
		if err != nil {
			return err
		}
		s, err := p.build(ctx)
		if err != nil {
			return err
		}
		if err := output(watchOut, []byte(s.SDL())); err != nil {
			return err
		}

		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create file watcher: %w", err)
		}
		defer w.Close()
		dirs, err := p.cfg.WatchDirs()
		if err != nil {
			return err
		}
		for _, dir := range dirs {
			if err := w.Add(dir); err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			p.log.Debug("watching directory", "dir", dir)
		}
		p.log.Info("watching project", "dirs", len(dirs), "out", watchOut)
		return p.watch(ctx, w, ns)
	},
}

// watch rebuilds the schema on batches of file events until ctx is done.
func (p *project) watch(ctx context.Context, w *fsnotify.Watcher, ns *nodeSync) error {
	var (
		mu      sync.Mutex
		pending = map[string]bool{}
		timer   *time.Timer
		batches = make(chan []string, 1)
	)
	flush := func() {
		mu.Lock()
		files := make([]string, 0, len(pending))
		for f := range pending {
			files = append(files, f)
		}
		clear(pending)
		mu.Unlock()
		slices.Sort(files)
		select {
		case batches <- files:
		case <-ctx.Done():
		}
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !p.cfg.IsTypeDefFile(ev.Name) && !p.cfg.IsNodeFile(ev.Name) {
				continue
			}
			mu.Lock()
			pending[ev.Name] = true
			if timer == nil {
				timer = time.AfterFunc(watchDebounce, flush)
			} else {
				timer.Reset(watchDebounce)
			}
			mu.Unlock()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			p.log.Warn("watch error", "error", err)
		case files := <-batches:
			if err := p.rebuild(ctx, ns, files); err != nil {
				p.log.Error("build failed", "error", err)
			}
		}
	}
}

// rebuild runs a full build when a type definition file changed and
// incremental rebuilds of the affected node types otherwise.
func (p *project) rebuild(ctx context.Context, ns *nodeSync, files []string) error {
	start := time.Now()
	full := slices.ContainsFunc(files, p.cfg.IsTypeDefFile)
	var s *compiler.Schema
	if slices.ContainsFunc(files, p.cfg.IsNodeFile) {
		nodes, err := p.cfg.LoadNodes()
		if err != nil {
			return err
		}
		types, err := ns.apply(ctx, nodes)
		if err != nil {
			return err
		}
		if !full {
			for _, t := range types {
				if s, err = p.builder.Rebuild(ctx, t); err != nil {
					return err
				}
			}
		}
	}
	if full {
		var err error
		if s, err = p.build(ctx); err != nil {
			return err
		}
	}
	if s == nil {
		return nil
	}
	p.log.Info("schema rebuilt", "files", len(files), "full", full, "duration", time.Since(start))
	return output(watchOut, []byte(s.SDL()))
}

// nodeSync mirrors the node files of a project into a writable store.
type nodeSync struct {
	put     func(context.Context, []*gqlcompose.Node) error
	del     func(context.Context, []string) error
	digests map[string]nodeDigest
}

type nodeDigest struct {
	typ    string
	digest string
}

func newNodeSync(store gqlcompose.NodeStore, nodes []*gqlcompose.Node) (*nodeSync, error) {
	ns := &nodeSync{digests: digests(nodes)}
	switch s := store.(type) {
	case *gqlcompose.MemStore:
		ns.put = func(_ context.Context, nodes []*gqlcompose.Node) error {
			for _, n := range nodes {
				if err := s.Add(n); err != nil {
					return err
				}
			}
			return nil
		}
		ns.del = func(_ context.Context, ids []string) error {
			for _, id := range ids {
				s.Delete(id)
			}
			return nil
		}
	case *sqlstore.Store:
		ns.put = func(ctx context.Context, nodes []*gqlcompose.Node) error { return s.Put(ctx, nodes...) }
		ns.del = func(ctx context.Context, ids []string) error { return s.Delete(ctx, ids...) }
	default:
		return nil, fmt.Errorf("gqlcompose: node store %T is read-only", store)
	}
	return ns, nil
}

func digests(nodes []*gqlcompose.Node) map[string]nodeDigest {
	out := make(map[string]nodeDigest, len(nodes))
	for _, n := range nodes {
		out[n.ID] = nodeDigest{typ: n.Type(), digest: infer.Digest(n)}
	}
	return out
}

// apply writes the nodes that changed since the last call, removes the
// nodes that disappeared and returns the affected node types.
func (ns *nodeSync) apply(ctx context.Context, nodes []*gqlcompose.Node) ([]string, error) {
	next := digests(nodes)
	var (
		changed []*gqlcompose.Node
		removed []string
		types   []string
	)
	touch := func(t string) {
		if !slices.Contains(types, t) {
			types = append(types, t)
		}
	}
	for _, n := range nodes {
		if old, ok := ns.digests[n.ID]; !ok || old != next[n.ID] {
			changed = append(changed, n)
			touch(n.Type())
			if ok && old.typ != n.Type() {
				touch(old.typ)
			}
		}
	}
	for id, old := range ns.digests {
		if _, ok := next[id]; !ok {
			removed = append(removed, id)
			touch(old.typ)
		}
	}
	if len(changed) > 0 {
		if err := ns.put(ctx, changed); err != nil {
			return nil, err
		}
	}
	if len(removed) > 0 {
		slices.Sort(removed)
		if err := ns.del(ctx, removed); err != nil {
			return nil, err
		}
	}
	ns.digests = next
	slices.Sort(types)
	return types, nil
}
