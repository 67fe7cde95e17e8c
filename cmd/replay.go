/*
Copyright © 2021 Joseph Lewis <joseph@josephlewis.net>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"os"
	"time"

	"github.com/josephlewis42/mpwsh/core/ttylog"
	"github.com/spf13/cobra"
)

var replayMaxPause time.Duration

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay recording.cast",
	Short: "Play a recorded session.",
	Long:  `Plays a session recorded by "mpwsh serve" back to the current terminal.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		fd, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer fd.Close()

		return ttylog.Replay(fd, cmd.OutOrStdout(), replayMaxPause)
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().DurationVar(&replayMaxPause, "max-pause", 2*time.Second, "longest pause between events, zero plays without pauses")
}
