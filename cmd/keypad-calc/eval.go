package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	grpcapi "github.com/lemonberrylabs/keypad-calc/pkg/api/grpc"
	"github.com/lemonberrylabs/keypad-calc/pkg/calc"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <expression>...",
		Short: "Evaluate an expression and print the result",
		Long: `Evaluate an expression. Arguments are joined with spaces, so
"keypad-calc eval 2 + 3 × 4" and "keypad-calc eval '2+3×4'" are the same.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runEval,
	}
	cmd.Flags().Bool("canonical", false, "Print the full-precision result instead of the rounded display")
	cmd.Flags().String("server", "", "Evaluate on a running gRPC server (host:port)")
	return cmd
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	expr := strings.Join(args, " ")
	canonical, _ := cmd.Flags().GetBool("canonical")

	if addr, _ := cmd.Flags().GetString("server"); addr != "" {
		return evalRemote(cmd, addr, expr, canonical)
	}

	value, err := calc.Compute(expr)
	if err != nil {
		return err
	}
	if canonical {
		fmt.Fprintln(cmd.OutOrStdout(), calc.FormatCanonical(value))
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), calc.FormatDisplay(value, cfg.Calculator.Precision))
	}
	return nil
}

func evalRemote(cmd *cobra.Command, addr, expr string, canonical bool) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	resp, err := grpcapi.NewClient(conn).Evaluate(ctx, expr)
	if err != nil {
		if reason := grpcapi.Reason(err); reason != "" {
			return fmt.Errorf("%s (%s)", reason, addr)
		}
		return err
	}
	field := "display"
	if canonical {
		field = "canonical"
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.GetFields()[field].GetStringValue())
	return nil
}

func newTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens <expression>...",
		Short: "Print the tokens of an expression",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := calc.Tokenize(strings.Join(args, " "))
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "POS\tTYPE\tLEXEME\tVALUE")
			for _, tok := range tokens {
				value := tok.Op.String()
				if tok.Type == calc.TokenNumber {
					value = calc.FormatCanonical(tok.Value)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", tok.Pos, tok.Type, tok.Lexeme, value)
			}
			return w.Flush()
		},
	}
}
