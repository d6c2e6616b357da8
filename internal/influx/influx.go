// Package influx records breakpoint series to InfluxDB, one point per
// breakpoint, falling back to a gzipped line-protocol file when the server
// is unreachable.
package influx

import (
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/weaponcharts/weaponcharts/internal/config"
	"github.com/weaponcharts/weaponcharts/pkg/core"
)

// Measurement is the measurement name of every written point.
const Measurement = "breakpoint"

// RetentionDays is the retention applied to a bucket created on Init.
const RetentionDays = 90

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client     influxdb2.Client
	Writer     influxdb2_api.WriteAPIBlocking
	IsValid    bool
	Logger     zerolog.Logger
	BackupPath string

	cfg        config.InfluxConfig
	mu         sync.Mutex
	backupFile *os.File
	backup     *gzip.Writer
}

// NewManager creates a new InfluxDB manager. backupPath may be empty to
// disable the fallback file.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		IsValid:    false,
		Logger:     log,
		BackupPath: backupPath,
		cfg:        cfg,
	}
}

// URL returns the server address built from the configuration.
func (m *Manager) URL() string {
	return fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port)
}

// Init connects to InfluxDB and ensures the organization and bucket exist.
// When the server is unreachable the backup file is used instead.
func (m *Manager) Init() error {
	m.Client = influxdb2.NewClientWithOptions(
		m.URL(),
		m.cfg.Token,
		influxdb2.DefaultOptions().SetHTTPRequestTimeout(5),
	)

	ctx := context.Background()

	// validate client connection health
	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.IsValid = false
		if m.BackupPath == "" {
			return fmt.Errorf("influxdb at %s unreachable: %v", m.URL(), err)
		}
		m.Logger.Info().Str("backupPath", m.BackupPath).
			Msg("Failed to initialize InfluxDB client, writing to backup file")
		return m.openBackup()
	}

	if err := m.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}
	m.Writer = m.Client.WriteAPIBlocking(m.cfg.Org, m.cfg.Bucket)
	m.IsValid = true
	m.Logger.Info().Str("bucket", m.cfg.Bucket).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.backup = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgs := m.Client.OrganizationsAPI()

	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.Logger.Info().Str("org", m.cfg.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org)
		if err != nil {
			return fmt.Errorf("error creating organization %s: %w", m.cfg.Org, err)
		}
	}

	buckets := m.Client.BucketsAPI()
	if _, err := buckets.FindBucketByName(ctx, m.cfg.Bucket); err != nil {
		m.Logger.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = buckets.CreateBucketWithName(ctx, org, m.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * RetentionDays,
		})
		if err != nil {
			return fmt.Errorf("error creating bucket %s: %w", m.cfg.Bucket, err)
		}
	}
	return nil
}

// Close flushes the backup file and closes the client.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.backup != nil {
		err = m.backup.Close()
		if cerr := m.backupFile.Close(); err == nil {
			err = cerr
		}
		m.backup = nil
		m.backupFile = nil
	}
	if m.Client != nil {
		m.Client.Close()
	}
	m.IsValid = false
	return err
}

// RecordRun writes one point per breakpoint of every weapon in run.
func (m *Manager) RecordRun(run *core.StatRun) error {
	if run == nil {
		return fmt.Errorf("nil run")
	}
	points := RunPoints(run)
	if len(points) == 0 {
		return nil
	}
	return m.WritePoints(context.Background(), points...)
}

// WritePoints writes points to InfluxDB or the backup file.
func (m *Manager) WritePoints(ctx context.Context, points ...*influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IsValid {
		if err := m.Writer.WritePoint(ctx, points...); err != nil {
			return fmt.Errorf("error writing to InfluxDB: %w", err)
		}
		return nil
	}

	if m.backup == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}
	for _, p := range points {
		line := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)
		if _, err := m.backup.Write([]byte(line)); err != nil {
			return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
		}
	}
	return nil
}

// RunPoints converts a run into breakpoint points. Tags identify the weapon
// and selection; fields carry the tier values.
func RunPoints(run *core.StatRun) []*influxdb2_write.Point {
	suppressed := strconv.FormatBool(core.NewAttachmentSet(run.Attachments...).HasSuppressor())

	var points []*influxdb2_write.Point
	for _, ws := range run.Weapons {
		for tier, bp := range ws.Breakpoints {
			p := influxdb2_write.NewPointWithMeasurement(Measurement).
				AddTag("run", run.ID).
				AddTag("game", run.Game).
				AddTag("category", run.Category).
				AddTag("weapon", ws.WeaponID).
				AddTag("class", ws.Class).
				AddTag("suppressed", suppressed).
				AddField("tier", tier).
				AddField("slot", bp.Index).
				AddField("damage", bp.Damage).
				AddField("hits_to_kill", bp.HitsToKill).
				AddField("range_units", bp.Range.Units).
				AddField("range_meters", bp.Range.Meters).
				SetTime(run.CreatedAt)
			points = append(points, p)
		}
	}
	return points
}
