package models

// TeacherProfile bundles the booking-relevant parts of a teacher profile.
type TeacherProfile struct {
	TeacherID    string             `json:"teacherId"`
	RateCard     TeacherRateCard    `json:"rateCard"`
	Availability AvailabilityWindow `json:"availability"`
}
