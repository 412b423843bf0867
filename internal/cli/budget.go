package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/forgeloop-io/forgeloop/internal/config"
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Inspect and configure the daily spend cap",
}

var budgetStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's spend against the cap",
	RunE:  runBudgetStatus,
}

var budgetSetCapCmd = &cobra.Command{
	Use:   "set-cap [usd]",
	Short: "Set the daily spend cap in USD",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetSetCap,
}

func init() {
	budgetCmd.AddCommand(budgetSetCapCmd)
	budgetCmd.AddCommand(budgetStatusCmd)
}

func runBudgetStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	spent, err := a.Budget.Spent()
	if err != nil {
		return err
	}
	remaining, err := a.Budget.Remaining()
	if err != nil {
		return err
	}
	tasks, err := a.Budget.TasksToday()
	if err != nil {
		return err
	}

	fmt.Println(styleBrand.Render("Daily budget"))
	fmt.Printf("  %s $%.2f\n", styleLabel.Render("Cap:"), a.Budget.Cap())
	fmt.Printf("  %s $%.2f\n", styleLabel.Render("Spent:"), spent)
	fmt.Printf("  %s $%.2f\n", styleLabel.Render("Remaining:"), remaining)
	fmt.Printf("  %s %d\n", styleLabel.Render("Tasks today:"), tasks)

	if remaining <= 0 {
		fmt.Println(styleWarning.Render("\nCap reached. New runs will be refused until midnight."))
	}
	return nil
}

func runBudgetSetCap(cmd *cobra.Command, args []string) error {
	capUSD, err := strconv.ParseFloat(args[0], 64)
	if err != nil || capUSD <= 0 {
		return fmt.Errorf("invalid cap: %s (want a positive dollar amount)", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Budget.SetCap(capUSD); err != nil {
		return err
	}

	// The cap is sourced from settings on startup; keep the two in sync.
	a.Settings.DailyCapUSD = capUSD
	if err := config.SaveSettings(a.Settings); err != nil {
		return err
	}

	fmt.Println(styleSuccess.Render(fmt.Sprintf("Daily cap set to $%.2f", capUSD)))
	return nil
}
