package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/wfunc/uart-reader/internal/config"
	"github.com/wfunc/uart-reader/internal/database"
	"github.com/wfunc/uart-reader/internal/errors"
	"github.com/wfunc/uart-reader/internal/models"
	"github.com/wfunc/uart-reader/internal/repository"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print captured traffic",
	Long:  `Lists rows recorded by capture (capture.enabled) newest first.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		direction, _ := cmd.Flags().GetString("direction")
		limit, _ := cmd.Flags().GetInt("limit")
		onlyErrors, _ := cmd.Flags().GetBool("errors")

		query, err := buildQuery(sessionID, direction, limit, onlyErrors)
		if err != nil {
			return err
		}

		repo, err := openRepository(&config.Get().Capture)
		if err != nil {
			return err
		}
		defer database.Close()

		logs, total, err := repo.Query(query)
		if err != nil {
			return err
		}
		printLogs(cmd.OutOrStdout(), logs, total)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print capture totals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		since, _ := cmd.Flags().GetDuration("since")

		repo, err := openRepository(&config.Get().Capture)
		if err != nil {
			return err
		}
		defer database.Close()

		var start *time.Time
		if since > 0 {
			t := time.Now().Add(-since)
			start = &t
		}

		stats, err := repo.GetStats(start, nil)
		if err != nil {
			return err
		}
		printStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(statsCmd)

	logsCmd.Flags().String("session", "", "只显示指定会话")
	logsCmd.Flags().String("direction", "", "SEND 或 RECEIVE")
	logsCmd.Flags().Int("limit", 20, "最多显示条数")
	logsCmd.Flags().Bool("errors", false, "只显示读写错误")

	statsCmd.Flags().Duration("since", 0, "只统计最近一段时间，如 24h")
}

// openRepository 打开记录数据库（不要求 capture.enabled）
func openRepository(cfg *config.CaptureConfig) (*repository.SerialLogRepository, error) {
	if err := database.Init(cfg); err != nil {
		return nil, err
	}
	return repository.NewSerialLogRepository(database.GetDB()), nil
}

func buildQuery(sessionID, direction string, limit int, onlyErrors bool) (*models.SerialLogQuery, error) {
	query := &models.SerialLogQuery{
		SessionID: sessionID,
		Limit:     limit,
	}

	switch d := models.SerialLogDirection(direction); d {
	case "", models.DirectionSend, models.DirectionReceive:
		query.Direction = d
	default:
		return nil, errors.Newf(errors.ErrInvalidParam, "direction=%q", direction)
	}

	if onlyErrors {
		query.HasError = &onlyErrors
	}
	return query, nil
}

func printLogs(w io.Writer, logs []*models.SerialLog, total int64) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tSESSION\tDIR\tBYTES\tDATA")
	for _, l := range logs {
		data := l.HexData
		if l.HasError() {
			data = "error: " + l.ErrorMsg
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n",
			l.ID,
			time.UnixMilli(l.Timestamp).Format("2006-01-02 15:04:05.000"),
			l.SessionID,
			l.Direction,
			l.BytesCount,
			data,
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "%d of %d rows\n", len(logs), total)
}

func printStats(w io.Writer, s *models.SerialLogStats) {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "rows:\t%d\n", s.TotalCount)
	fmt.Fprintf(tw, "sessions:\t%d\n", s.TotalSessions)
	fmt.Fprintf(tw, "sent:\t%d rows, %d bytes\n", s.TotalSend, s.BytesSent)
	fmt.Fprintf(tw, "received:\t%d rows, %d bytes\n", s.TotalReceive, s.BytesReceived)
	fmt.Fprintf(tw, "errors:\t%d\n", s.TotalErrors)
	tw.Flush()
}
