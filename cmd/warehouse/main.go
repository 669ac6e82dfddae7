// Command warehouse submits device registration, Rücknahme, and label
// requests from the terminal. It drives the same pipeline the mobile screen
// uses; image flags stand in for the camera.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/DcSyedFaraz/impora-warehouse/config"
	"github.com/DcSyedFaraz/impora-warehouse/internal/app"
	"github.com/DcSyedFaraz/impora-warehouse/internal/intake"
	"github.com/DcSyedFaraz/impora-warehouse/internal/media"
	"github.com/DcSyedFaraz/impora-warehouse/internal/pipeline"
)

var configPath string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warehouse: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "warehouse",
		Short:        "Impora warehouse intake CLI",
		Long:         "Submits device registration, Rücknahme, and label requests to the warehouse backend.",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.json (compiled-in defaults when omitted)")
	cmd.AddCommand(
		newSubmitCmd(),
		newRuecknahmeCmd(),
		newLabelCmd(),
	)
	return cmd
}

func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// terminalPresenter renders outcomes as plain text. It is the CLI stand-in
// for the app's modal.
type terminalPresenter struct{}

func (terminalPresenter) Present(o pipeline.Outcome) {
	fmt.Printf("\n%s\n%s\n", o.Heading, o.Message)
}

func (terminalPresenter) DismissOverlay() {}

func buildPipeline() (*pipeline.Pipeline, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.BuildPipeline(app.Options{Config: cfg, Presenter: terminalPresenter{}}), nil
}

func acquireImages(ctx context.Context, paths []string, max int) ([]media.Image, error) {
	if len(paths) > max {
		return nil, fmt.Errorf("at most %d images are allowed, got %d", max, len(paths))
	}
	acquirer := &media.FileAcquirer{Paths: paths}
	images := make([]media.Image, 0, len(paths))
	for range paths {
		img, err := acquirer.Acquire(ctx)
		if err != nil {
			if errors.Is(err, media.ErrPermissionDenied) {
				return nil, fmt.Errorf("Permission Error: %w", err)
			}
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func outcomeErr(o pipeline.Outcome, ran bool) error {
	if !ran {
		return errors.New("another submission is already in flight")
	}
	if o.Kind != pipeline.OutcomeSuccess {
		return fmt.Errorf("submission failed (%s)", o.Kind)
	}
	return nil
}

func newSubmitCmd() *cobra.Command {
	var (
		product   string
		form      string
		accountID string
		qrCode    string
		imei      string
		images    []string
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a device registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			productKind, err := parseProduct(product)
			if err != nil {
				return err
			}
			formKind, err := parseForm(form)
			if err != nil {
				return err
			}

			state := &intake.FormState{}
			state.SelectProduct(productKind)
			state.SelectForm(formKind)
			state.AccountID = accountID
			state.QRCode = qrCode
			state.IMEI = imei

			imgs, err := acquireImages(ctx, images, 2)
			if err != nil {
				return err
			}
			for i, img := range imgs {
				state.SetImage(intake.ImageSlot(i), img)
			}

			p, err := buildPipeline()
			if err != nil {
				return err
			}
			outcome, ran := p.SubmitForm(ctx, state)
			return outcomeErr(outcome, ran)
		},
	}
	cmd.Flags().StringVar(&product, "product", "", "Product category: basisstation or james_uhr")
	cmd.Flags().StringVar(&form, "form", "", "Form: account-qr, verpackung, or imei-qr")
	cmd.Flags().StringVar(&accountID, "account-id", "", "Account ID (account-qr form)")
	cmd.Flags().StringVar(&qrCode, "qr", "", "QR code value")
	cmd.Flags().StringVar(&imei, "imei", "", "IMEI (imei-qr form)")
	cmd.Flags().StringArrayVar(&images, "image", nil, "Path to a photo (repeatable, max 2, slot order)")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("form")
	return cmd
}

func newRuecknahmeCmd() *cobra.Command {
	var (
		qrCode  string
		handler string
		notes   string
		images  []string
	)
	cmd := &cobra.Command{
		Use:   "ruecknahme",
		Short: "Submit a device return (Rücknahme)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ri := &intake.ReturnIntake{QRCode: qrCode, Handler: handler, Notes: notes}
			imgs, err := acquireImages(ctx, images, intake.ReturnIntakeSlots)
			if err != nil {
				return err
			}
			for i, img := range imgs {
				ri.Images[i] = img
			}

			p, err := buildPipeline()
			if err != nil {
				return err
			}
			outcome, ran := p.SubmitReturnIntake(ctx, ri)
			return outcomeErr(outcome, ran)
		},
	}
	cmd.Flags().StringVar(&qrCode, "qr", "", "QR code of the returned device")
	cmd.Flags().StringVar(&handler, "bearbeiter", "", "Person processing the return")
	cmd.Flags().StringVar(&notes, "notizen", "", "Optional notes")
	cmd.Flags().StringArrayVar(&images, "image", nil, "Path to a photo (repeatable, max 3)")
	return cmd
}

func newLabelCmd() *cobra.Command {
	var qrCode string
	cmd := &cobra.Command{
		Use:   "label",
		Short: "Request a label for a QR code (Label erzeugen)",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildPipeline()
			if err != nil {
				return err
			}
			outcome, ran := p.SubmitLabel(cmd.Context(), &intake.LabelRequest{QRCode: qrCode})
			return outcomeErr(outcome, ran)
		},
	}
	cmd.Flags().StringVar(&qrCode, "qr", "", "QR code to generate a label for")
	return cmd
}

func parseProduct(s string) (intake.ProductKind, error) {
	switch s {
	case "basisstation":
		return intake.BaseStation, nil
	case "james_uhr":
		return intake.WatchDevice, nil
	default:
		return intake.ProductNone, fmt.Errorf("unknown product %q (want basisstation or james_uhr)", s)
	}
}

func parseForm(s string) (intake.FormKind, error) {
	switch s {
	case "account-qr":
		return intake.FormAccountAndQR, nil
	case "verpackung":
		return intake.FormPackagingPhoto, nil
	case "imei-qr":
		return intake.FormImeiAndQR, nil
	default:
		return intake.FormNone, fmt.Errorf("unknown form %q (want account-qr, verpackung, or imei-qr)", s)
	}
}
