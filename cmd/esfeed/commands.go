package main

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	eventstore "github.com/tahoelimited/eventstore-client-go"
)

func newWriteCommand(flags *globalFlags) *cobra.Command {
	var (
		metadata string
		eventID  string
	)

	cmd := &cobra.Command{
		Use:   "write <stream> <event-type> <json-data>",
		Short: "Append one event to a stream",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data any
			if err := json.Unmarshal([]byte(args[2]), &data); err != nil {
				return fmt.Errorf("event data is not JSON: %w", err)
			}

			opts := []eventstore.EventOption{eventstore.WithRandomEventID()}
			if eventID != "" {
				id, err := uuid.Parse(eventID)
				if err != nil {
					return fmt.Errorf("invalid event id: %w", err)
				}
				opts = append(opts, eventstore.WithEventID(id))
			}
			if metadata != "" {
				var md any
				if err := json.Unmarshal([]byte(metadata), &md); err != nil {
					return fmt.Errorf("metadata is not JSON: %w", err)
				}
				opts = append(opts, eventstore.WithMetadata(md))
			}

			client, cleanup, err := connect(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer cleanup()

			resp, err := client.WriteToStream(cmd.Context(), args[0], eventstore.NewWritableEvent(args[1], data, opts...))
			if err != nil {
				return err
			}
			if err := render(cmd.OutOrStdout(), flags.output, responseView(args[0], resp)); err != nil {
				return err
			}
			return resp.Err()
		},
	}

	cmd.Flags().StringVar(&metadata, "metadata", "", "event metadata as JSON")
	cmd.Flags().StringVar(&eventID, "id", "", "event id (UUID); random when omitted")
	return cmd
}

func newReadCommand(flags *globalFlags) *cobra.Command {
	var embed string

	cmd := &cobra.Command{
		Use:   "read <stream>",
		Short: "Print the head page of a stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := eventstore.ParseEventEmbedMode(embed)
			if err != nil {
				return err
			}

			client, cleanup, err := connect(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer cleanup()

			feed, resp, err := client.OpenStreamFeed(cmd.Context(), args[0], mode)
			if err != nil {
				return err
			}
			if feed == nil {
				return resp.Err()
			}
			return render(cmd.OutOrStdout(), flags.output, newFeedView(feed))
		},
	}

	cmd.Flags().StringVar(&embed, "embed", "none", "embed mode: none, content, rich, body, pretty, tryharder")
	return cmd
}

func newWalkCommand(flags *globalFlags) *cobra.Command {
	var (
		embed    string
		relation string
		maxPages int
	)

	cmd := &cobra.Command{
		Use:   "walk <stream>",
		Short: "Print the head page and every page reached by following a relation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := eventstore.ParseEventEmbedMode(embed)
			if err != nil {
				return err
			}
			rel, err := eventstore.ParseStreamFeedLinkRelation(relation)
			if err != nil {
				return err
			}

			client, cleanup, err := connect(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer cleanup()

			head, resp, err := client.OpenStreamFeed(cmd.Context(), args[0], mode)
			if err != nil {
				return err
			}
			if head == nil {
				return resp.Err()
			}

			pages := []feedView{newFeedView(head)}
			for page, err := range client.Pages(cmd.Context(), head, rel) {
				if err != nil {
					return err
				}
				pages = append(pages, newFeedView(page))
				if maxPages > 0 && len(pages) >= maxPages {
					break
				}
			}
			return render(cmd.OutOrStdout(), flags.output, pages)
		},
	}

	cmd.Flags().StringVar(&embed, "embed", "none", "embed mode: none, content, rich, body, pretty, tryharder")
	cmd.Flags().StringVar(&relation, "relation", "next", "link relation to follow")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop after this many pages (0 for no limit)")
	return cmd
}

func newDeleteCommand(flags *globalFlags) *cobra.Command {
	var (
		hard        bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "delete <stream>...",
		Short: "Delete one or more streams",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := eventstore.SoftDelete
			if hard {
				mode = eventstore.HardDelete
			}

			client, cleanup, err := connect(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer cleanup()

			results := make([]statusView, len(args))
			var (
				mu       sync.Mutex
				firstErr error
			)

			g, ctx := errgroup.WithContext(cmd.Context())
			if concurrency > 0 {
				g.SetLimit(concurrency)
			}
			for i, stream := range args {
				g.Go(func() error {
					resp, err := client.DeleteStream(ctx, stream, mode)
					if err != nil {
						return err
					}
					results[i] = responseView(stream, resp)
					if err := resp.Err(); err != nil {
						mu.Lock()
						if firstErr == nil {
							firstErr = err
						}
						mu.Unlock()
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			if err := render(cmd.OutOrStdout(), flags.output, results); err != nil {
				return err
			}
			return firstErr
		},
	}

	cmd.Flags().BoolVar(&hard, "hard", false, "delete permanently")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "maximum concurrent delete requests")
	return cmd
}

func newEventCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "event <event-url>",
		Short: "Print a single event document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := connect(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer cleanup()

			ev, resp, err := client.ReadEvent(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ev == nil {
				return resp.Err()
			}
			return render(cmd.OutOrStdout(), flags.output, newEventView(*ev))
		},
	}
}
