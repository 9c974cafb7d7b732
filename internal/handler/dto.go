package handler

import (
	"time"

	"github.com/ptetdev/ptet/internal/domain/ride"
	"github.com/ptetdev/ptet/internal/domain/ridetag"
	"github.com/ptetdev/ptet/internal/domain/tag"
	"github.com/ptetdev/ptet/internal/domain/user"
)

type userResponse struct {
	ID         int64   `json:"id"`
	JWTIssuer  string  `json:"jwt_issuer"`
	JWTSubject string  `json:"jwt_subject"`
	Name       *string `json:"name"`
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{
		ID:         u.ID,
		JWTIssuer:  u.JWTIssuer,
		JWTSubject: u.JWTSubject,
		Name:       u.Name,
	}
}

type userRequest struct {
	Name *string `json:"name"`
}

type rideResponse struct {
	ID               int64          `json:"id"`
	JourneyDeparture time.Time      `json:"journey_departure"`
	JourneyArrival   *time.Time     `json:"journey_arrival"`
	LocationFrom     string         `json:"location_from"`
	LocationTo       string         `json:"location_to"`
	Remarks          *string        `json:"remarks"`
	IsTemplate       bool           `json:"is_template"`
	Tags             []linkResponse `json:"tags"`
}

func toRideResponse(r *ride.Ride) rideResponse {
	resp := rideResponse{
		ID:               r.ID,
		JourneyDeparture: r.JourneyDeparture,
		JourneyArrival:   r.JourneyArrival,
		LocationFrom:     r.LocationFrom,
		LocationTo:       r.LocationTo,
		Remarks:          r.Remarks,
		IsTemplate:       r.IsTemplate,
		Tags:             make([]linkResponse, 0, len(r.Tags)),
	}
	for i := range r.Tags {
		resp.Tags = append(resp.Tags, toLinkResponse(&r.Tags[i]))
	}
	return resp
}

type rideRequest struct {
	JourneyDeparture *time.Time `json:"journey_departure"`
	JourneyArrival   *time.Time `json:"journey_arrival"`
	LocationFrom     string     `json:"location_from"`
	LocationTo       string     `json:"location_to"`
	Remarks          *string    `json:"remarks"`
	IsTemplate       bool       `json:"is_template"`
}

type tagResponse struct {
	ID          int64            `json:"id"`
	TagType     tag.Type         `json:"tag_type"`
	TagKey      string           `json:"tag_key"`
	TagName     *string          `json:"tag_name"`
	DisplayName string           `json:"tag_display_name"`
	Unit        *string          `json:"unit"`
	Remarks     *string          `json:"remarks"`
	UUID        string           `json:"uuid"`
	Options     []optionResponse `json:"options,omitempty"`
}

func toTagResponse(t *tag.Tag) tagResponse {
	resp := tagResponse{
		ID:          t.ID,
		TagType:     t.Type,
		TagKey:      t.Key,
		TagName:     t.Name,
		DisplayName: t.DisplayName(),
		Unit:        t.Unit,
		Remarks:     t.Remarks,
		UUID:        t.UUID,
	}
	if t.Type == tag.TypeEnum {
		resp.Options = make([]optionResponse, 0, len(t.Options))
		for i := range t.Options {
			resp.Options = append(resp.Options, toOptionResponse(&t.Options[i]))
		}
	}
	return resp
}

type tagRequest struct {
	TagType string  `json:"tag_type"`
	TagKey  string  `json:"tag_key"`
	TagName *string `json:"tag_name"`
	Unit    *string `json:"unit"`
	Remarks *string `json:"remarks"`
}

type optionResponse struct {
	ID          int64   `json:"id"`
	TagID       int64   `json:"tag_id"`
	Order       int64   `json:"order"`
	Value       string  `json:"value"`
	Name        *string `json:"name"`
	DisplayName string  `json:"display_name"`
	UUID        string  `json:"uuid"`
}

func toOptionResponse(o *tag.Option) optionResponse {
	return optionResponse{
		ID:          o.ID,
		TagID:       o.TagID,
		Order:       o.Order,
		Value:       o.Value,
		Name:        o.Name,
		DisplayName: o.DisplayName(),
		UUID:        o.UUID,
	}
}

type optionRequest struct {
	Order int64   `json:"order"`
	Value string  `json:"value"`
	Name  *string `json:"name"`
}

type linkResponse struct {
	ID      int64         `json:"id"`
	RideID  int64         `json:"ride_id"`
	TagID   int64         `json:"tag_id"`
	Order   int64         `json:"order"`
	Value   ridetag.Value `json:"value"`
	Remarks *string       `json:"remarks"`
}

func toLinkResponse(l *ridetag.Link) linkResponse {
	return linkResponse{
		ID:      l.ID,
		RideID:  l.RideID,
		TagID:   l.TagID,
		Order:   l.Order,
		Value:   l.Value,
		Remarks: l.Remarks,
	}
}

type linkRequest struct {
	Order   int64          `json:"order"`
	Value   *ridetag.Value `json:"value"`
	Remarks *string        `json:"remarks"`
}

// linkedTagResponse pairs a link with its tag descriptor so clients can
// render a value without a second round trip.
type linkedTagResponse struct {
	Link linkResponse `json:"link"`
	Tag  tagResponse  `json:"tag"`
}
