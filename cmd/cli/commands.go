package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/StreamDNA/pkg/logger"
	"github.com/himanishpuri/StreamDNA/pkg/models"
	"github.com/himanishpuri/StreamDNA/pkg/streamdna/storage"
	"github.com/himanishpuri/StreamDNA/pkg/streamdna/trace"
)

func newSetupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup DATASET_ROOT",
		Short: "Fingerprint the segment dataset and save the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			db, err := svc.Setup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fingerprinted %d videos into %s\n", len(db), a.cfg.DB)
			return nil
		},
	}
	cmd.Flags().Int("videos", defaultConfig().Videos, "number of videos in the dataset")
	return cmd
}

func newAttackCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attack TRACE_ROOT",
		Short: "Classify every trace of the trace dataset and report accuracy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			_, err = svc.Attack(cmd.Context(), args[0])
			return err
		},
	}
	addWindowFlags(cmd)
	cmd.Flags().Bool("verbose", false, "print every classification")
	cmd.Flags().Bool("keep-going", false, "report unreadable traces instead of stopping")
	return cmd
}

func newClassifyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify TRACE_FILE",
		Short: "Classify a single trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			result, err := svc.ClassifyTrace(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printClassification(cmd.OutOrStdout(), result)
		},
	}
	addWindowFlags(cmd)
	return cmd
}

func printClassification(w io.Writer, c models.Classification) error {
	if c.Matches == 0 {
		_, err := fmt.Fprintf(w, "No matches, defaulting to video %02d\n", c.Video)
		return err
	}
	mode := "Slow"
	if c.Fast {
		mode = "Fast"
	}
	if _, err := fmt.Fprintf(w, "%s mode classification, video %02d (%d/%d matches)\n", mode, c.Video, c.Votes, c.Matches); err != nil {
		return err
	}
	if c.Trigger == nil {
		return nil
	}
	for i, m := range c.Trigger {
		if _, err := fmt.Fprintf(w, "Match %d: quality %s, segment offset %d, capture offset %d\n",
			i+1, m.Quality, m.CandidateOffset, m.CaptureOffset); err != nil {
			return err
		}
	}
	return nil
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the fingerprinted videos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			videos, err := svc.ListVideos()
			if err != nil {
				return err
			}
			if len(videos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No videos in database")
				return nil
			}
			renderVideos(cmd.OutOrStdout(), videos)
			logger.Debugf("Listed %d videos", len(videos))
			return nil
		},
	}
}

func renderVideos(w io.Writer, videos []storage.VideoSummary) {
	header := []string{"VIDEO"}
	for _, tag := range models.QualityTags {
		header = append(header, "SEGMENTS "+tag, "SIZE "+tag)
	}

	var data [][]string
	for _, v := range videos {
		row := []string{fmt.Sprintf("%02d", v.ID)}
		for q := range models.QualityTags {
			row = append(row, strconv.Itoa(v.Segments[q]), humanize.Bytes(uint64(v.TotalBytes[q])))
		}
		data = append(data, row)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}

func newConvertCmd() *cobra.Command {
	var client, output string
	cmd := &cobra.Command{
		Use:   "convert CAPTURE.pcap",
		Short: "Convert a pcap capture into a trace file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ip := net.ParseIP(client)
			if ip == nil {
				return errors.New("--client must be an IP address")
			}

			in, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening capture: %w", err)
			}
			defer in.Close()

			if output == "" {
				_, err = convertCapture(in, cmd.OutOrStdout(), ip, args[0])
				return err
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating trace: %w", err)
			}
			if _, err := convertCapture(in, f, ip, args[0]); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVar(&client, "client", "", "IP address of the streaming client")
	cmd.Flags().StringVarP(&output, "output", "o", "", "trace file to write (default stdout)")
	return cmd
}

func convertCapture(r io.Reader, w io.Writer, client net.IP, source string) (int, error) {
	n, err := trace.ConvertPcap(r, w, client)
	if err != nil {
		return n, fmt.Errorf("converting %s: %w", source, err)
	}
	logger.Infof("Wrote %d packets from %s", n, source)
	return n, nil
}
