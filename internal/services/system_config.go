package services

import (
	"errors"
	"strconv"

	"github.com/taskflow/backend/internal/config"
	"github.com/taskflow/backend/internal/models"
	"github.com/taskflow/backend/pkg/response"
	"gorm.io/gorm"
)

// Keys of the runtime report switches stored in system_configs.
const (
	KeyReportDailyEnabled   = "report_daily_enabled"
	KeyReportWeeklyEnabled  = "report_weekly_enabled"
	KeyReportRetentionDays  = "report_retention_days"
	KeyReportHolidayCountry = "report_holiday_country"
	KeyLogRetentionDays     = "log_retention_days"
)

type SystemConfigService struct {
	db *gorm.DB
}

func NewSystemConfigService(db *gorm.DB) *SystemConfigService {
	return &SystemConfigService{db: db}
}

func (s *SystemConfigService) Get(key string) (string, error) {
	var cfg models.SystemConfig
	if err := s.db.Where(&models.SystemConfig{Key: key}).First(&cfg).Error; err != nil {
		return "", err
	}
	return cfg.Value, nil
}

// GetWithDefault returns defaultValue when the key is missing or blank.
func (s *SystemConfigService) GetWithDefault(key, defaultValue string) string {
	value, err := s.Get(key)
	if err != nil || value == "" {
		return defaultValue
	}
	return value
}

func (s *SystemConfigService) GetBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(s.GetWithDefault(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return v
}

func (s *SystemConfigService) GetInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(s.GetWithDefault(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return v
}

func (s *SystemConfigService) Set(key, value string) error {
	var cfg models.SystemConfig
	err := s.db.Where(&models.SystemConfig{Key: key}).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.Create(&models.SystemConfig{Key: key, Value: value}).Error
	}
	if err != nil {
		return err
	}
	return s.db.Model(&cfg).Update("value", value).Error
}

func (s *SystemConfigService) GetByGroup(group string) ([]models.SystemConfig, error) {
	var configs []models.SystemConfig
	if err := s.db.Where(&models.SystemConfig{Group: group}).Order("id").Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

// LDAPConfig overlays the ldap_* rows on top of the file configuration.
func (s *SystemConfigService) LDAPConfig(base config.LDAPConfig) config.LDAPConfig {
	cfg := base
	cfg.Enabled = s.GetBool("ldap_enabled", base.Enabled)
	cfg.Host = s.GetWithDefault("ldap_host", base.Host)
	cfg.Port = s.GetInt("ldap_port", base.Port)
	cfg.BaseDN = s.GetWithDefault("ldap_base_dn", base.BaseDN)
	cfg.BindDN = s.GetWithDefault("ldap_bind_dn", base.BindDN)
	cfg.BindPassword = s.GetWithDefault("ldap_bind_password", base.BindPassword)
	cfg.UserFilter = s.GetWithDefault("ldap_user_filter", base.UserFilter)
	cfg.UseSSL = s.GetBool("ldap_use_ssl", base.UseSSL)
	return cfg
}

// ReportSettings are the report switches an admin can change without a restart.
type ReportSettings struct {
	DailyEnabled   bool   `json:"daily_enabled"`
	WeeklyEnabled  bool   `json:"weekly_enabled"`
	RetentionDays  int    `json:"retention_days"`
	HolidayCountry string `json:"holiday_country"`
	DailyCron      string `json:"daily_cron"`
	WeeklyCron     string `json:"weekly_cron"`
	Timezone       string `json:"timezone"`
}

// ReportSettings resolves the runtime switches; file values act as defaults.
func (s *SystemConfigService) ReportSettings(base config.ReportConfig) ReportSettings {
	return ReportSettings{
		DailyEnabled:   s.GetBool(KeyReportDailyEnabled, true),
		WeeklyEnabled:  s.GetBool(KeyReportWeeklyEnabled, true),
		RetentionDays:  s.GetInt(KeyReportRetentionDays, base.RetentionDays),
		HolidayCountry: s.GetWithDefault(KeyReportHolidayCountry, base.HolidayCountry),
		DailyCron:      base.DailyCron,
		WeeklyCron:     base.WeeklyCron,
		Timezone:       base.Timezone,
	}
}

type UpdateReportSettingsRequest struct {
	DailyEnabled   *bool   `json:"daily_enabled"`
	WeeklyEnabled  *bool   `json:"weekly_enabled"`
	RetentionDays  *int    `json:"retention_days"`
	HolidayCountry *string `json:"holiday_country"`
}

func (s *SystemConfigService) UpdateReportSettings(req *UpdateReportSettingsRequest, holidays *HolidayService) error {
	if req.RetentionDays != nil && *req.RetentionDays < 0 {
		return response.NewBadRequest("retention_days must be >= 0")
	}
	if req.HolidayCountry != nil && holidays != nil && !holidays.IsSupported(*req.HolidayCountry) {
		return response.NewBadRequest("unsupported holiday country: " + *req.HolidayCountry)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		txSvc := NewSystemConfigService(tx)
		if req.DailyEnabled != nil {
			if err := txSvc.Set(KeyReportDailyEnabled, strconv.FormatBool(*req.DailyEnabled)); err != nil {
				return err
			}
		}
		if req.WeeklyEnabled != nil {
			if err := txSvc.Set(KeyReportWeeklyEnabled, strconv.FormatBool(*req.WeeklyEnabled)); err != nil {
				return err
			}
		}
		if req.RetentionDays != nil {
			if err := txSvc.Set(KeyReportRetentionDays, strconv.Itoa(*req.RetentionDays)); err != nil {
				return err
			}
		}
		if req.HolidayCountry != nil {
			if err := txSvc.Set(KeyReportHolidayCountry, *req.HolidayCountry); err != nil {
				return err
			}
		}
		return nil
	})
}
