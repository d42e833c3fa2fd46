package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/panbanda/asaclean/internal/cache"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Result cache commands",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached results",
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func openCache() (*cache.Cache, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	return cache.New(cfg.Cache.Dir, cfg.Cache.TTL, true)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	c, err := openCache()
	if err != nil {
		return err
	}
	if c == nil {
		color.Yellow("Cache is disabled (set cache.enabled = true)")
		return nil
	}

	stats, err := c.GetStats()
	if err != nil {
		return err
	}
	fmt.Printf("Directory: %s\n", c.Dir())
	fmt.Printf("Entries:   %d\n", stats.Entries)
	fmt.Printf("Size:      %d bytes\n", stats.TotalSize)
	if stats.Entries > 0 {
		fmt.Printf("Oldest:    %s ago\n", stats.OldestAge.Round(time.Second))
	}
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	c, err := openCache()
	if err != nil {
		return err
	}
	if c == nil {
		color.Yellow("Cache is disabled, nothing to clear")
		return nil
	}
	if err := c.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	color.Green("Cleared %s", c.Dir())
	return nil
}
