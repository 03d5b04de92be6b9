package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/maauso/wcfm-archiver/internal/naming"
	"github.com/maauso/wcfm-archiver/internal/storage"
)

// archiveInfo is one row of the archives listing.
type archiveInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "archives",
		Short: "List archived segments, oldest first",
		Args:  cobra.NoArgs,
		RunE:  runArchives,
	}

	RootCmd.AddCommand(cmd)
}

func runArchives(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := storage.NewLocalStorage(cfg.ArchiveDir, naming.Extension)
	if err != nil {
		return err
	}

	names, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	infos := make([]archiveInfo, 0, len(names))
	var total int64
	for _, name := range names {
		fi, err := os.Stat(store.Path(name))
		if err != nil {
			continue
		}
		infos = append(infos, archiveInfo{Name: name, Size: fi.Size(), Modified: fi.ModTime()})
		total += fi.Size()
	}

	if formatFlag == "json" {
		return writeJSON(cmd.OutOrStdout(), infos)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, a := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Name, humanize.Bytes(uint64(a.Size)), a.Modified.Format(time.DateTime))
	}
	fmt.Fprintf(tw, "%d files\t%s\t(max %d)\n", len(infos), humanize.Bytes(uint64(total)), cfg.MaxFiles)
	return tw.Flush()
}
