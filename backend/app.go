package backend

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"reflect"
	"time"

	"github.com/tunecrate/tunecrate/backend/catalogapi"
	"github.com/tunecrate/tunecrate/backend/player/mpv"

	"github.com/20after4/configdir"
)

const (
	configFile  = "config.toml"
	portableDir = "tunecrate_portable"
	imagesDir   = "covers"
)

type App struct {
	Config       *Config
	APIClient    *catalogapi.Client
	Catalog      *CatalogStore
	Lookups      *LookupStore
	UI           *UIStore
	Playback     *PlaybackEngine
	Orchestrator *Orchestrator
	ImageManager *ImageManager
	LocalPlayer  *mpv.Player

	appName       string
	appVersionTag string
	configDir     string
	cacheDir      string
	portableMode  bool

	isFirstLaunch bool // set by config file reader
	bgrndCtx      context.Context
	cancel        context.CancelFunc

	lastWrittenCfg Config
}

func (a *App) VersionTag() string {
	return a.appVersionTag
}

func StartupApp(appName, appVersionTag string) (*App, error) {
	var confDir, cacheDir string
	portableMode := false
	if p := checkPortablePath(); p != "" {
		confDir = path.Join(p, "config")
		cacheDir = path.Join(p, "cache")
		portableMode = true
	} else {
		confDir = configdir.LocalConfig(appName)
		cacheDir = configdir.LocalCache(appName)
	}
	// ensure config and cache dirs exist
	configdir.MakePath(confDir)
	configdir.MakePath(cacheDir)

	log.Printf("Starting %s...", appName)
	log.Printf("Using config dir: %s", confDir)
	log.Printf("Using cache dir: %s", cacheDir)

	a := &App{
		appName:       appName,
		appVersionTag: appVersionTag,
		configDir:     confDir,
		cacheDir:      cacheDir,
		portableMode:  portableMode,
	}
	a.bgrndCtx, a.cancel = context.WithCancel(context.Background())
	a.readConfig()
	a.startConfigWriter(a.bgrndCtx)

	if err := a.initMPV(); err != nil {
		return nil, err
	}

	a.APIClient = catalogapi.NewClient(a.Config.Server.BaseURL)
	a.Catalog = NewCatalogStore()
	a.Lookups = NewLookupStore()
	a.UI = NewUIStore()
	if !a.Config.Application.SidebarOpen {
		a.UI.ToggleSidebar()
	}

	a.Playback = NewPlaybackEngine(a.LocalPlayer, a.Config.LocalPlayback.Volume)
	a.Playback.SetRepeat(RepeatModeFromString(a.Config.LocalPlayback.RepeatMode))

	// edits and deletions in the catalog must be reflected in the
	// playing song and queue
	a.Catalog.OnSongUpdated(a.Playback.OnSongUpdated)
	a.Catalog.OnSongDeleted(a.Playback.OnSongDeleted)

	a.Orchestrator = NewOrchestrator(a.bgrndCtx, a.APIClient, a.Catalog, a.Lookups, a.UI)

	a.ImageManager = NewImageManager(path.Join(cacheDir, imagesDir))
	a.Config.Application.MaxImageCacheSizeMB = clamp(a.Config.Application.MaxImageCacheSizeMB, 1, 500)
	a.ImageManager.SetMaxOnDiskCacheSizeBytes(int64(a.Config.Application.MaxImageCacheSizeMB) * 1_048_576)

	return a, nil
}

func (a *App) IsFirstLaunch() bool {
	return a.isFirstLaunch
}

func (a *App) IsPortableMode() bool {
	return a.portableMode
}

func checkPortablePath() string {
	if p, err := os.Executable(); err == nil {
		pdirPath := path.Join(filepath.Dir(p), portableDir)
		if s, err := os.Stat(pdirPath); err == nil && s.IsDir() {
			return pdirPath
		}
	}
	return ""
}

func (a *App) readConfig() {
	cfgPath := a.configFilePath()
	var cfgExists bool
	if _, err := os.Stat(cfgPath); err == nil {
		cfgExists = true
	}
	a.isFirstLaunch = !cfgExists
	cfg, err := ReadConfigFile(cfgPath, a.appVersionTag)
	if err != nil {
		log.Printf("Error reading app config file: %v", err)
		cfg = DefaultConfig(a.appVersionTag)
		if cfgExists {
			backupCfgName := fmt.Sprintf("%s.bak", configFile)
			log.Printf("Config file may be malformed: copying to %s", backupCfgName)
			_ = copyFile(cfgPath, path.Join(a.configDir, backupCfgName))
		}
	}
	a.Config = cfg
}

// periodically save config file so abnormal exit won't lose settings
func (a *App) startConfigWriter(ctx context.Context) {
	tick := time.NewTicker(2 * time.Minute)
	go func() {
		for {
			select {
			case <-ctx.Done():
				tick.Stop()
				return
			case <-tick.C:
				if !reflect.DeepEqual(&a.lastWrittenCfg, a.Config) {
					a.Config.WriteConfigFile(a.configFilePath())
					a.lastWrittenCfg = *a.Config
				}
			}
		}
	}()
}

func (a *App) initMPV() error {
	p := mpv.NewWithClientName(a.appName)
	c := a.Config.LocalPlayback
	c.InMemoryCacheSizeMB = clamp(c.InMemoryCacheSizeMB, 10, 500)
	if err := p.Init(c.InMemoryCacheSizeMB); err != nil {
		return fmt.Errorf("failed to initialize mpv player: %s", err.Error())
	}
	a.LocalPlayer = p
	return nil
}

func (a *App) Shutdown() {
	a.Playback.DisableCallbacks()
	a.Config.LocalPlayback.Volume = a.Playback.GetVolume()
	a.Config.LocalPlayback.RepeatMode = a.Playback.GetRepeat().String()
	a.Config.Application.SidebarOpen = a.UI.State().SidebarOpen
	a.Playback.SetCurrentSong(nil)
	a.cancel()
	a.LocalPlayer.Destroy()
	a.Config.WriteConfigFile(a.configFilePath())
}

func (a *App) configFilePath() string {
	return path.Join(a.configDir, configFile)
}

func copyFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}

func clamp(i, min, max int) int {
	if i < min {
		return min
	}
	if i > max {
		return max
	}
	return i
}
