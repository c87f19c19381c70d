package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ndewijer/portfolio-client/internal/apperrors"
	"github.com/ndewijer/portfolio-client/internal/service"
)

// newRootCmd creates the root command
func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Track stock holdings against the portfolio service",
		Long: `portfolio keeps a live view of your stock holdings, their value and sector
allocation, refreshes prices in the background and answers questions through the
investment advisor.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			a.teardown()
		},
	}

	rootCmd.PersistentFlags().String("api-url", "", "Portfolio service base URL (overrides PORTFOLIO_API_URL)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		newWatchCmd(a),
		newHoldingsCmd(a),
		newAddCmd(a),
		newDeleteCmd(a),
		newRefreshCmd(a),
		newInsightsCmd(a),
		newSuggestionsCmd(a),
		newAskCmd(a),
		newHealthCmd(a),
	)

	return rootCmd
}

// newWatchCmd creates the watch command
func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Load the portfolio and keep prices up to date until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.errs.Subscribe(func(msg string) {
				if msg != "" {
					printError(a.out, msg)
				}
			})

			var (
				mu   sync.Mutex
				last string
			)
			a.store.Subscribe(func(snap service.Snapshot) {
				if snap.Sync.Busy() {
					return
				}
				summary := renderSummary(snap)

				mu.Lock()
				defer mu.Unlock()
				if summary == last {
					return
				}
				last = summary
				fmt.Fprintln(a.out, summary)
			})

			if err := a.store.LoadInitial(ctx); err != nil {
				a.logger.Warn("initial load failed, waiting for the next refresh", zap.Error(err))
			}

			scheduler := service.NewScheduler(a.store, nil, a.logger)
			scheduler.Start()
			defer scheduler.Stop()

			<-ctx.Done()
			fmt.Fprintln(a.out, mutedStyle.Render("stopping"))
			return nil
		},
	}
}

// newHoldingsCmd creates the holdings command
func newHoldingsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "holdings",
		Short: "List holdings with their value and return",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.store.LoadInitial(cmd.Context()); err != nil {
				return err
			}
			snap := a.store.Snapshot()
			fmt.Fprintln(a.out, renderHoldings(snap.Holdings))
			fmt.Fprintln(a.out, renderSummary(snap))
			return nil
		},
	}
}

// newAddCmd creates the add command
func newAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add TICKER SHARES DATE",
		Short: "Add a holding",
		Long: `Add a holding bought on DATE (YYYY-MM-DD). Without --buy-price the portfolio
service looks up the historical price for that date.
Example: portfolio add AAPL 10 2024-03-15 --buy-price 172.50`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			shares, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return apperrors.ErrInvalidShares
			}

			var opts []service.AddOption
			if cmd.Flags().Changed("buy-price") {
				price, _ := cmd.Flags().GetFloat64("buy-price")
				opts = append(opts, service.WithBuyPrice(price))
			}

			result, err := a.store.AddHolding(cmd.Context(), args[0], shares, args[2], opts...)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, gainStyle.Render(result.Message))
			fmt.Fprintln(a.out, renderSummary(a.store.Snapshot()))
			return nil
		},
	}

	cmd.Flags().Float64("buy-price", 0, "Price per share paid, instead of the historical price")

	return cmd
}

// newDeleteCmd creates the delete command
func newDeleteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a holding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				confirmed := false
				prompt := &survey.Confirm{
					Message: fmt.Sprintf("Delete holding %s? This cannot be undone.", id),
				}
				if err := survey.AskOne(prompt, &confirmed); err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(a.out, mutedStyle.Render("cancelled"))
					return nil
				}
			}

			result, err := a.store.DeleteHolding(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, gainStyle.Render(result.Message))
			return nil
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

// newRefreshCmd creates the refresh command
func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch current prices now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scheduler := service.NewScheduler(a.store, nil, a.logger)
			if err := scheduler.RefreshNow(cmd.Context()); err != nil {
				return err
			}
			snap := a.store.Snapshot()
			fmt.Fprintln(a.out, renderHoldings(snap.Holdings))
			fmt.Fprintln(a.out, renderSummary(snap))
			return nil
		},
	}
}

// newInsightsCmd creates the insights command
func newInsightsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "insights",
		Short: "Show return, holding time, sector allocation and risks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.store.LoadInitial(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, renderInsights(a.store.Insights(time.Now())))
			return nil
		},
	}
}

// newSuggestionsCmd creates the suggestions command
func newSuggestionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "suggestions",
		Short: "Show the advisor's suggestions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session := a.newSession()
			defer session.Close()

			fmt.Fprintln(a.out, renderSuggestions(session.LoadSuggestions(cmd.Context())))
			return nil
		},
	}
}

// newAskCmd creates the ask command
func newAskCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [QUESTION]",
		Short: "Ask the investment advisor",
		Long: `Ask the investment advisor a question. Without a question an interactive
conversation starts; enter an empty line or "exit" to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			session := a.newSession()
			defer session.Close()

			if len(args) > 0 {
				reply, err := session.Ask(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, renderMessage(reply))
				return nil
			}

			return runConversation(cmd.Context(), a, session)
		},
	}
}

func runConversation(ctx context.Context, a *app, session *service.AdvisorySession) error {
	fmt.Fprintln(a.out, titleStyle.Render("Investment advisor"))
	fmt.Fprintln(a.out, renderSuggestions(session.LoadSuggestions(ctx)))

	for {
		var question string
		err := survey.AskOne(&survey.Input{Message: "You:"}, &question)
		if errors.Is(err, terminal.InterruptErr) {
			return nil
		}
		if err != nil {
			return err
		}

		question = strings.TrimSpace(question)
		if question == "" || strings.EqualFold(question, "exit") || strings.EqualFold(question, "quit") {
			return nil
		}

		reply, err := session.Ask(ctx, question)
		if err != nil {
			printError(a.out, err.Error())
			session.DismissError()
			continue
		}
		fmt.Fprintln(a.out, renderMessage(reply))
	}
}

// newHealthCmd creates the health command
func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the portfolio service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := a.client.Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s %s\n", gainStyle.Render(status.Status), mutedStyle.Render(status.Timestamp))
			return nil
		},
	}
}
