// memoryvault is an offline inspection CLI for vault JSON files:
// section statistics, keyword-only retrieval, and branch pruning.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/GaraRoyal/memoryvault/branch"
	"github.com/GaraRoyal/memoryvault/retrieval"
	"github.com/GaraRoyal/memoryvault/scoring"
	"github.com/GaraRoyal/memoryvault/vault"
)

var vaultPath string

var rootCmd = &cobra.Command{
	Use:   "memoryvault",
	Short: "Inspect and maintain role-play memory vaults",
	Long:  "Offline tools for vault JSON files: stats, keyword retrieval, and branch pruning.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&vaultPath, "vault", "v", "vault.json", "Path to the vault JSON file")
	rootCmd.AddCommand(statsCmd(), retrieveCmd(), pruneCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadVault() *vault.Vault {
	data, err := os.ReadFile(vaultPath)
	if err != nil {
		exitErr("read vault", err)
	}
	var v vault.Vault
	if err := json.Unmarshal(data, &v); err != nil {
		exitErr("parse vault", err)
	}
	if err := v.Validate(); err != nil {
		exitErr("validate vault", err)
	}
	return &v
}

func saveVault(v *vault.Vault) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		exitErr("encode vault", err)
	}
	if err := os.WriteFile(vaultPath, data, 0o644); err != nil {
		exitErr("write vault", err)
	}
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show vault section counts",
		Run: func(cmd *cobra.Command, args []string) {
			v := loadVault()
			b, _ := json.MarshalIndent(v.Stats(), "", "  ")
			fmt.Println(string(b))
		},
	}
}

func retrieveCmd() *cobra.Command {
	var pov string
	var limit int
	cmd := &cobra.Command{
		Use:   "retrieve <query text>",
		Short: "Rank memories against a query (keyword-only, no embeddings)",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			v := loadVault()
			query := args[0]

			scorer := scoring.New(scoring.DefaultConfig())
			qc := &scoring.QueryContext{
				Text:                query,
				Terms:               scoring.Tokenize(query),
				CurrentMessageIndex: maxMessageIndex(v) + 1,
			}

			type row struct {
				mem   *vault.Memory
				total float64
			}
			var rows []row
			for _, m := range v.Memories {
				sc := scorer.Score(m, qc)
				if !scorer.Admit(m, sc) {
					continue
				}
				rows = append(rows, row{m, sc.Total})
			}
			sort.SliceStable(rows, func(i, j int) bool {
				if rows[i].total != rows[j].total {
					return rows[i].total > rows[j].total
				}
				return rows[i].mem.Sequence > rows[j].mem.Sequence
			})

			var mems []*vault.Memory
			for _, r := range rows {
				mems = append(mems, r.mem)
			}
			mems = retrieval.FilterByKnowledge(mems, pov)
			if limit > 0 && len(mems) > limit {
				mems = mems[:limit]
			}
			for _, m := range mems {
				fmt.Println(m.Format())
			}
		},
	}
	cmd.Flags().StringVar(&pov, "pov", "", "POV character gating secret visibility")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum memories to print")
	return cmd
}

func pruneCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "prune <chat-length>",
		Short: "Remove memories stranded beyond the given chat length",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			var chatLength int
			if _, err := fmt.Sscanf(args[0], "%d", &chatLength); err != nil || chatLength < 0 {
				exitErr("parse chat length", fmt.Errorf("%q is not a non-negative integer", args[0]))
			}

			v := loadVault()
			res := branch.Prune(v, chatLength, true)
			fmt.Printf("pruned %d memories, cleaned %d known-event refs, %d history entries\n",
				res.Pruned(), res.KnownEventsCleaned, res.HistoryCleaned)
			if !dryRun && res.Pruned() > 0 {
				saveVault(v)
			}
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report without writing the vault back")
	return cmd
}

func maxMessageIndex(v *vault.Vault) int {
	max := 0
	for _, m := range v.Memories {
		if id := m.MaxMessageID(); id > max {
			max = id
		}
	}
	return max
}
