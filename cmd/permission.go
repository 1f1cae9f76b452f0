package cmd

import (
	"fmt"

	"github.com/audiolibrelab/quickrec/internal/state"

	"github.com/spf13/cobra"
)

var permissionCmd = &cobra.Command{
	Use:   "permission",
	Short: "Inspect or change the stored microphone permission",
}

var permissionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored microphone permission",
	RunE: func(cmd *cobra.Command, args []string) error {
		consent, err := state.NewStore(cfg.Storage.StateFile).Consent()
		if err != nil {
			return err
		}
		if consent == state.ConsentUnknown {
			fmt.Println("not asked yet")
			return nil
		}
		fmt.Println(consent)
		return nil
	},
}

var permissionResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the stored answer so QuickRec asks again",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := state.NewStore(cfg.Storage.StateFile).ResetConsent(); err != nil {
			return err
		}
		fmt.Println("Microphone permission reset")
		return nil
	},
}

var permissionGrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Allow microphone use without being asked",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setConsent(true)
	},
}

var permissionDenyCmd = &cobra.Command{
	Use:   "deny",
	Short: "Refuse microphone use",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setConsent(false)
	},
}

func setConsent(granted bool) error {
	store := state.NewStore(cfg.Storage.StateFile)
	if err := store.SetConsent(granted); err != nil {
		return err
	}
	consent, err := store.Consent()
	if err != nil {
		return err
	}
	fmt.Printf("Microphone permission: %s\n", consent)
	return nil
}

func init() {
	permissionCmd.AddCommand(permissionStatusCmd)
	permissionCmd.AddCommand(permissionResetCmd)
	permissionCmd.AddCommand(permissionGrantCmd)
	permissionCmd.AddCommand(permissionDenyCmd)
}
