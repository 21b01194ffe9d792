package services

import (
	"strings"
	"time"

	"github.com/6tail/lunar-go/HolidayUtil"
	"github.com/6tail/lunar-go/calendar"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/at"
	"github.com/rickar/cal/v2/au"
	"github.com/rickar/cal/v2/be"
	"github.com/rickar/cal/v2/br"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/ch"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/dk"
	"github.com/rickar/cal/v2/es"
	"github.com/rickar/cal/v2/fi"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/ie"
	"github.com/rickar/cal/v2/it"
	"github.com/rickar/cal/v2/jp"
	"github.com/rickar/cal/v2/nl"
	"github.com/rickar/cal/v2/no"
	"github.com/rickar/cal/v2/nz"
	"github.com/rickar/cal/v2/pl"
	"github.com/rickar/cal/v2/pt"
	"github.com/rickar/cal/v2/se"
	"github.com/rickar/cal/v2/us"
)

// Country codes with special handling.
const (
	CountryChina        = "CN"
	CountryWeekdaysOnly = "NONE"
)

type CountryInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type countryCalendar struct {
	info     CountryInfo
	holidays []*cal.Holiday
}

var businessCalendars = []countryCalendar{
	{CountryInfo{"US", "United States"}, us.Holidays},
	{CountryInfo{"GB", "United Kingdom"}, gb.Holidays},
	{CountryInfo{"DE", "Germany"}, de.Holidays},
	{CountryInfo{"FR", "France"}, fr.Holidays},
	{CountryInfo{"JP", "Japan"}, jp.Holidays},
	{CountryInfo{"AU", "Australia (NSW)"}, au.HolidaysNSW},
	{CountryInfo{"CA", "Canada"}, ca.Holidays},
	{CountryInfo{"NZ", "New Zealand"}, nz.Holidays},
	{CountryInfo{"IT", "Italy"}, it.Holidays},
	{CountryInfo{"ES", "Spain"}, es.Holidays},
	{CountryInfo{"NL", "Netherlands"}, nl.Holidays},
	{CountryInfo{"BE", "Belgium"}, be.Holidays},
	{CountryInfo{"AT", "Austria"}, at.Holidays},
	{CountryInfo{"CH", "Switzerland"}, ch.Holidays},
	{CountryInfo{"SE", "Sweden"}, se.Holidays},
	{CountryInfo{"NO", "Norway"}, no.Holidays},
	{CountryInfo{"DK", "Denmark"}, dk.Holidays},
	{CountryInfo{"FI", "Finland"}, fi.Holidays},
	{CountryInfo{"PL", "Poland"}, pl.Holidays},
	{CountryInfo{"PT", "Portugal"}, pt.Holidays},
	{CountryInfo{"IE", "Ireland"}, ie.Holidays},
	{CountryInfo{"BR", "Brazil"}, br.Holidays},
}

// HolidayService decides whether a date is a working day in a given country.
// The daily report trigger consults it to skip weekends and public holidays.
type HolidayService struct {
	calendars map[string]*cal.BusinessCalendar
}

func NewHolidayService() *HolidayService {
	s := &HolidayService{calendars: make(map[string]*cal.BusinessCalendar, len(businessCalendars))}
	for _, cc := range businessCalendars {
		c := cal.NewBusinessCalendar()
		c.Name = cc.info.Name
		c.AddHoliday(cc.holidays...)
		s.calendars[cc.info.Code] = c
	}
	return s
}

// IsWorkday treats an empty country code as "every day is a workday".
// Unknown codes and NONE fall back to Monday through Friday.
func (s *HolidayService) IsWorkday(t time.Time, countryCode string) bool {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	switch code {
	case "":
		return true
	case CountryChina:
		return isWorkdayChina(t)
	}

	if c, ok := s.calendars[code]; ok {
		return c.IsWorkday(t)
	}
	return !cal.IsWeekend(t)
}

// isWorkdayChina honours the official adjusted working days (调休) from lunar-go.
func isWorkdayChina(t time.Time) bool {
	solar := calendar.NewSolarFromDate(t)
	if holiday := HolidayUtil.GetHolidayByYmd(solar.GetYear(), solar.GetMonth(), solar.GetDay()); holiday != nil {
		return holiday.IsWork()
	}
	return !cal.IsWeekend(t)
}

func (s *HolidayService) SupportedCountries() []CountryInfo {
	countries := []CountryInfo{{Code: CountryChina, Name: "China"}}
	for _, cc := range businessCalendars {
		countries = append(countries, cc.info)
	}
	return append(countries, CountryInfo{Code: CountryWeekdaysOnly, Name: "Weekdays Only (Mon-Fri)"})
}

func (s *HolidayService) IsSupported(countryCode string) bool {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	if code == "" || code == CountryChina || code == CountryWeekdaysOnly {
		return true
	}
	_, ok := s.calendars[code]
	return ok
}
