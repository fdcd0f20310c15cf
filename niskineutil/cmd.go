/*
Copyright © 2022 the niskine authors.
This file is part of niskine.

niskine is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

niskine is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with niskine.  If not, see <http://www.gnu.org/licenses/>.
*/

package niskineutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modscripps/niskine"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to niskine.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the project configuration file location.
              If it is not set, the nearest directory at or above the
              working directory whose name ends in "niskine" and that
              contains a config.yml file is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "verbose",
			usage: `
              verbose turns on debug logging.`,
			shorthand:  "v",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "values",
			usage: `
              values specifies whether to print configuration values
              in addition to the keys.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{configCmd.Flags()},
		},
		{
			name: "moorings",
			usage: `
              moorings specifies the numbers of the moorings to process.`,
			defaultVal: []int{1, 2, 3},
			flagsets:   []*pflag.FlagSet{mergeCmd.Flags()},
		},
		{
			name: "mooring",
			usage: `
              mooring specifies the number of the mooring to use.`,
			shorthand:  "m",
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{sshEKECmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "merge.method",
			usage: `
              merge.method specifies the merge methods to run. Valid
              methods are "simple", where the deepest instrument with
              data wins, and "median", the median across instruments.`,
			defaultVal: []string{"simple", "median"},
			flagsets:   []*pflag.FlagSet{mergeCmd.Flags()},
		},
		{
			name: "merge.dt",
			usage: `
              merge.dt specifies the time step of the common grid.`,
			defaultVal: "10m",
			flagsets:   []*pflag.FlagSet{mergeCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "merge.dz",
			usage: `
              merge.dz specifies the depth step of the common grid in meters.`,
			defaultVal: 16.0,
			flagsets:   []*pflag.FlagSet{mergeCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "merge.maxdepth",
			usage: `
              merge.maxdepth specifies the depth in meters the common
              grid extends to.`,
			defaultVal: 3000.0,
			flagsets:   []*pflag.FlagSet{mergeCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "merge.minend",
			usage: `
              merge.minend excludes instruments that stopped recording
              before this date. An empty value keeps all instruments.`,
			defaultVal: "2020-01-01",
			flagsets:   []*pflag.FlagSet{mergeCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "merge.start",
			usage: `
              merge.start replaces the start of the mooring deployment
              as the beginning of the common grid.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{mergeCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "merge.stop",
			usage: `
              merge.stop replaces the end of the mooring deployment as
              the end of the common grid.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{mergeCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "merge.keepna",
			usage: `
              merge.keepna keeps depth levels without any data in the
              merged product.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{mergeCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "merge.fillgaps",
			usage: `
              merge.fillgaps additionally saves each merged product with
              gaps in depth filled by linear interpolation.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{mergeCmd.Flags()},
		},
		{
			name: "merge.label",
			usage: `
              merge.label is prepended to the suffix of the output files.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{mergeCmd.Flags()},
		},
		{
			name: "merge.indir",
			usage: `
              merge.indir replaces the processed ADCP directory of the
              project configuration.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{mergeCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "merge.outdir",
			usage: `
              merge.outdir replaces the gridded ADCP directory of the
              project configuration. It may be a blob URL starting with
              file://, gs://, or s3://.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{mergeCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "link.source",
			usage: `
              link.source specifies the directory holding the mooring
              data as M<N>/ADCP/proc/<sn>/*.nc. If empty, the
              data.mooring entry of the project configuration is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{linkCmd.Flags()},
		},
		{
			name: "mercator.dataset",
			usage: `
              mercator.dataset specifies the product to download: "ssh"
              for daily altimetry or "hourly" for the hourly analysis.`,
			defaultVal: "ssh",
			flagsets:   []*pflag.FlagSet{mercatorCmd.Flags()},
		},
		{
			name: "mercator.start",
			usage: `
              mercator.start specifies the first date to download.`,
			defaultVal: "2019-05-01",
			flagsets:   []*pflag.FlagSet{mercatorCmd.Flags()},
		},
		{
			name: "mercator.end",
			usage: `
              mercator.end specifies the last date to download.`,
			defaultVal: "2020-11-01",
			flagsets:   []*pflag.FlagSet{mercatorCmd.Flags()},
		},
		{
			name: "mercator.monthly",
			usage: `
              mercator.monthly, if not zero, downloads the given year in
              monthly requests instead of the start/end range.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{mercatorCmd.Flags()},
		},
		{
			name: "mercator.url",
			usage: `
              mercator.url replaces the MOTU server address of the dataset.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{mercatorCmd.Flags()},
		},
		{
			name: "mercator.outdir",
			usage: `
              mercator.outdir replaces the SSH directory of the project
              configuration as the output directory.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{mercatorCmd.Flags()},
		},
		{
			name: "era5.years",
			usage: `
              era5.years specifies the years of ERA5 wind to download.`,
			defaultVal: []string{"2018", "2019", "2020"},
			flagsets:   []*pflag.FlagSet{era5Cmd.Flags()},
		},
		{
			name: "era5.cdsapirc",
			usage: `
              era5.cdsapirc specifies the CDS API configuration file.`,
			defaultVal: "${HOME}/.cdsapirc",
			flagsets:   []*pflag.FlagSet{era5Cmd.Flags()},
		},
		{
			name: "era5.out",
			usage: `
              era5.out replaces the data.wind.era5 entry of the project
              configuration as the output file.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{era5Cmd.Flags()},
		},
		{
			name: "ssh.file",
			usage: `
              ssh.file specifies the altimetry file. If empty,
              mercator_ssh.nc in the SSH directory is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{sshEKECmd.Flags()},
		},
		{
			name: "ssh.out",
			usage: `
              ssh.out specifies the eddy kinetic energy output file. If
              empty, eke.nc in the SSH directory is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{sshEKECmd.Flags()},
		},
		{
			name: "plot.suffix",
			usage: `
              plot.suffix specifies the suffix of the gridded product to
              plot, e.g. "simple_merge".`,
			defaultVal: "simple_merge",
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
		{
			name: "plot.var",
			usage: `
              plot.var specifies the variable to plot: u, v, or w.`,
			defaultVal: "u",
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
		{
			name: "plot.overlap",
			usage: `
              plot.overlap plots the number of instruments with data in
              each grid cell instead of a gridded variable.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
		{
			name: "plot.vmin",
			usage: `
              plot.vmin and plot.vmax set the color scale. If both are
              zero, the scale spans the data.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
		{
			name: "plot.vmax",
			usage: `
              plot.vmax is the upper end of the color scale.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
		{
			name: "plot.file",
			usage: `
              plot.file replaces the gridded product to plot. It may be a
              local path, a URL, or a blob.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("NISKINE")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case []int:
				if option.shorthand == "" {
					set.IntSlice(option.name, option.defaultVal.([]int), option.usage)
				} else {
					set.IntSliceP(option.name, option.shorthand, option.defaultVal.([]int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(configCmd)
	Root.AddCommand(linkCmd)
	Root.AddCommand(mergeCmd)
	Root.AddCommand(downloadCmd)
	downloadCmd.AddCommand(mercatorCmd)
	downloadCmd.AddCommand(era5Cmd)
	Root.AddCommand(sshCmd)
	sshCmd.AddCommand(sshEKECmd)
	Root.AddCommand(plotCmd)
}

// configFile is the project configuration file found by setConfig.
var configFile string

// setConfig sets up logging and finds the project configuration
// file. The project file is read by LoadConfig rather than into Cfg,
// so its mooring table does not shadow the mooring option.
func setConfig() error {
	setLogger(os.Stderr, Cfg.GetBool("verbose"))
	configFile = os.ExpandEnv(Cfg.GetString("config"))
	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return fmt.Errorf("niskine: problem reading configuration file: %v", err)
		}
		return nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("niskine: %w", err)
	}
	if f, _, err := FindConfigFile(wd); err == nil {
		configFile = f
		Log.WithField("config", configFile).Debug("found configuration file")
	}
	return nil
}

// projectConfig loads the project configuration found by setConfig.
func projectConfig() (*Config, error) {
	if configFile == "" {
		return nil, fmt.Errorf("niskine: no configuration file; use --config or run from within the project directory")
	}
	return LoadConfig(configFile)
}

// optionalTime returns the time set by option key, or the zero time
// if the option is empty.
func optionalTime(key string) (time.Time, error) {
	s := Cfg.GetString(key)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := cast.ToTimeE(s)
	if err != nil {
		return t, fmt.Errorf("niskine: option %s: %v", key, err)
	}
	return t.UTC(), nil
}

// mergeConfig returns the merge parameters set by the merge.* options.
func mergeConfig() (niskine.MergeConfig, error) {
	cfg := niskine.DefaultMergeConfig()
	var err error
	if cfg.Dt, err = cast.ToDurationE(Cfg.Get("merge.dt")); err != nil {
		return cfg, fmt.Errorf("niskine: option merge.dt: %v", err)
	}
	cfg.Dz = Cfg.GetFloat64("merge.dz")
	cfg.MaxDepth = Cfg.GetFloat64("merge.maxdepth")
	if cfg.MinEndTime, err = optionalTime("merge.minend"); err != nil {
		return cfg, err
	}
	if cfg.Start, err = optionalTime("merge.start"); err != nil {
		return cfg, err
	}
	if cfg.Stop, err = optionalTime("merge.stop"); err != nil {
		return cfg, err
	}
	cfg.DropNA = !Cfg.GetBool("merge.keepna")
	return cfg, nil
}

// dirOption returns the directory set by option key, or the one
// returned by fallback if the option is empty.
func dirOption(key string, fallback func() (string, error)) (string, error) {
	if d := Cfg.GetString(key); d != "" {
		return os.ExpandEnv(d), nil
	}
	return fallback()
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "niskine",
	Short: "Process NISKINe mooring data.",
	Long: `niskine processes the current profiler records of the NISKINe moorings.
Its main task is merging the records of all ADCPs on a mooring onto a common
time/depth grid. It also downloads auxiliary datasets and computes eddy kinetic
energy from satellite altimetry.

Data locations are read from the config.yml file of the project directory.
Other configuration can be changed by using the same file, by using command-line
arguments, or by setting environment variables in the format 'NISKINE_var'
where 'var' is the name of the variable to be set with dots replaced by
underscores, e.g. NISKINE_MERGE_DZ.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of niskine.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("niskine v%s\n", niskine.Version)
	},
	DisableAutoGenTag: true,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the project configuration",
	Long: `config prints the keys of the project configuration with all paths
resolved, or with --values the whole configuration as YAML.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := projectConfig()
		if err != nil {
			return err
		}
		return c.Print(cmd.OutOrStdout(), Cfg.GetBool("values"))
	},
	DisableAutoGenTag: true,
}

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link processed ADCP files",
	Long: `link creates links to the processed ADCP files of all moorings in the
processed ADCP directory, named M<N>_<sn>.nc. Existing links are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := projectConfig()
		if err != nil {
			return err
		}
		src, err := dirOption("link.source", func() (string, error) { return c.Path("data.mooring") })
		if err != nil {
			return err
		}
		dst, err := c.ProcADCPDir()
		if err != nil {
			return err
		}
		links, err := LinkProcADCP(src, dst, Log)
		for _, l := range links {
			cmd.Println(l)
		}
		return err
	},
	DisableAutoGenTag: true,
}

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge ADCP records",
	Long: `merge merges the ADCP records of each mooring onto a common time/depth
grid with each of the selected methods and saves the gridded products to the
gridded ADCP directory as M<N>_gridded_<method>_merge.nc.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := projectConfig()
		if err != nil {
			return err
		}
		mc, err := mergeConfig()
		if err != nil {
			return err
		}
		var methods []niskine.Method
		for _, s := range Cfg.GetStringSlice("merge.method") {
			m, err := niskine.ParseMethod(s)
			if err != nil {
				return err
			}
			methods = append(methods, m)
		}
		r := &MergeRun{
			Config:   c,
			Moorings: Cfg.GetIntSlice("moorings"),
			Methods:  methods,
			Merge:    mc,
			FillGaps: Cfg.GetBool("merge.fillgaps"),
			Label:    Cfg.GetString("merge.label"),
			InDir:    os.ExpandEnv(Cfg.GetString("merge.indir")),
			OutDir:   os.ExpandEnv(Cfg.GetString("merge.outdir")),
			Log:      Log,
		}
		files, err := r.Run(cmd.Context())
		for _, f := range files {
			cmd.Println(f)
		}
		return err
	},
	DisableAutoGenTag: true,
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download auxiliary datasets",
	Long: `download retrieves auxiliary datasets. Use the subcommands specified
below to choose a dataset.`,
	DisableAutoGenTag: true,
}

var mercatorCmd = &cobra.Command{
	Use:   "mercator",
	Short: "Download Copernicus Marine data",
	Long: `mercator downloads altimetry or ocean analysis data over the NISKINe
region from the Copernicus Marine service. Credentials are read from the
COPERNICUS_USERNAME and COPERNICUS_PASSWORD environment variables or requested
on the terminal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := projectConfig()
		if err != nil {
			return err
		}
		outDir, err := dirOption("mercator.outdir", c.SSHDir)
		if err != nil {
			return err
		}
		dataset := Cfg.GetString("mercator.dataset")
		rm, err := NewRetrieveMercatorData(dataset, outDir)
		if err != nil {
			return err
		}
		rm.Log = Log
		if u := Cfg.GetString("mercator.url"); u != "" {
			rm.URL = u
		}
		var requests []map[string]interface{}
		if year := Cfg.GetInt("mercator.monthly"); year != 0 {
			prefix := "mercator_" + dataset
			if dataset == "hourly" {
				prefix = "hourly_ssh"
			}
			requests = MonthlyRequests(year, prefix)
		} else {
			requests = []map[string]interface{}{{
				"date_min": Cfg.GetString("mercator.start"),
				"date_max": Cfg.GetString("mercator.end"),
			}}
		}
		for _, r := range requests {
			f, err := rm.Retrieve(cmd.Context(), r)
			if err != nil {
				return err
			}
			cmd.Println(f)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var era5Cmd = &cobra.Command{
	Use:   "era5",
	Short: "Download ERA5 wind",
	Long: `era5 downloads hourly ERA5 10 m wind over the NISKINe region from the
Copernicus Climate Data Store. The API endpoint and key are read from the CDS
API configuration file or the CDSAPI_URL and CDSAPI_KEY environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := projectConfig()
		if err != nil {
			return err
		}
		out, err := dirOption("era5.out", c.ERA5File)
		if err != nil {
			return err
		}
		creds, err := ReadCDSCredentials(os.ExpandEnv(Cfg.GetString("era5.cdsapirc")))
		if err != nil {
			return err
		}
		if err := RetrieveERA5(cmd.Context(), creds, Cfg.GetStringSlice("era5.years"), out); err != nil {
			return err
		}
		cmd.Println(out)
		return nil
	},
	DisableAutoGenTag: true,
}

var sshCmd = &cobra.Command{
	Use:   "ssh",
	Short: "Analyze satellite altimetry",
	Long: `ssh analyzes sea surface height data. Use the subcommands specified
below to choose an analysis.`,
	DisableAutoGenTag: true,
}

var sshEKECmd = &cobra.Command{
	Use:   "eke",
	Short: "Compute eddy kinetic energy",
	Long: `eke computes eddy kinetic energy from geostrophic velocity anomalies,
prints its mean at the selected mooring, and saves the mean and monthly
climatology of the region.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := projectConfig()
		if err != nil {
			return err
		}
		m, err := c.Mooring(Cfg.GetInt("mooring"))
		if err != nil {
			return err
		}
		file, err := dirOption("ssh.file", func() (string, error) {
			d, err := c.SSHDir()
			return filepath.Join(d, "mercator_ssh.nc"), err
		})
		if err != nil {
			return err
		}
		out, err := dirOption("ssh.out", func() (string, error) {
			d, err := c.SSHDir()
			return filepath.Join(d, "eke.nc"), err
		})
		if err != nil {
			return err
		}
		r, err := SSHEKE(cmd.Context(), file, m, out, Log)
		if err != nil {
			return err
		}
		cmd.Printf("%s mean EKE: %.4g m²/s²\n", r.Mooring, r.Mean)
		return nil
	},
	DisableAutoGenTag: true,
}

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Plot a gridded product",
	Long: `plot draws a depth/time section of a variable of the gridded product of
a mooring and saves it as a PNG file in the figure directory. With
--plot.overlap, it instead merges the records of the mooring and plots the
number of instruments with data in each grid cell.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := projectConfig()
		if err != nil {
			return err
		}
		m, err := c.Mooring(Cfg.GetInt("mooring"))
		if err != nil {
			return err
		}
		figDir, err := c.FigDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(figDir, os.ModePerm); err != nil {
			return fmt.Errorf("niskine: creating figure directory: %w", err)
		}

		if Cfg.GetBool("plot.overlap") {
			mc, err := mergeConfig()
			if err != nil {
				return err
			}
			inDir, err := dirOption("merge.indir", c.ProcADCPDir)
			if err != nil {
				return err
			}
			adcps, err := niskine.LoadMooringADCPs(inDir, m)
			if err != nil {
				return err
			}
			ma, err := niskine.NewMergeADCP(m, adcps, mc, Log)
			if err != nil {
				return err
			}
			out := filepath.Join(figDir, m.Name()+"_overlap.png")
			if err := PlotOverlap(ma, out, Log); err != nil {
				return err
			}
			cmd.Println(out)
			return nil
		}

		suffix := Cfg.GetString("plot.suffix")
		file, err := dirOption("plot.file", func() (string, error) {
			d, err := dirOption("merge.outdir", c.GriddedADCPDir)
			return joinPath(d, GriddedFileName(m.Name(), suffix)), err
		})
		if err != nil {
			return err
		}
		name := Cfg.GetString("plot.var")
		out := filepath.Join(figDir, fmt.Sprintf("%s_%s_%s.png", m.Name(), name, suffix))
		hm := HeatMap{Min: Cfg.GetFloat64("plot.vmin"), Max: Cfg.GetFloat64("plot.vmax")}
		if err := PlotGridded(cmd.Context(), file, name, hm, out); err != nil {
			return err
		}
		cmd.Println(out)
		return nil
	},
	DisableAutoGenTag: true,
}
