package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"redalert/backend/internal/contacts"
	apicommon "redalert/backend/internal/shared/api"
	"redalert/backend/internal/shared/types"
	"redalert/backend/pkg/router"
)

// StationResponse is a fire station with its hotlines split out.
type StationResponse struct {
	Town     string   `json:"town"`
	Title    string   `json:"title"`
	Hotlines []string `json:"hotlines"`
}

func stationResponse(st contacts.Station) StationResponse {
	return StationResponse{Town: st.Town, Title: st.Title(), Hotlines: st.Lines()}
}

var exampleStation = stationResponse(contacts.Station{Town: "Mendez", Hotlines: "(046) 482-0712\n0919-092-0206"})

func (s *Handler) ListContacts(w http.ResponseWriter, r *http.Request) error {
	all := s.svc.Contacts.All()

	resp := make([]StationResponse, 0, len(all))
	for _, st := range all {
		resp = append(resp, stationResponse(st))
	}

	apicommon.RespondJSON(w, r, http.StatusOK, resp)

	return nil
}

func (s *Handler) RegisterListContacts(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "listContacts",
		Summary:     "List fire station hotlines",
		Description: "Every fire station in the directory with its hotline numbers",
		Group:       ContactsGroup,
		Handler:     apicommon.ErrorHandler(s.ListContacts),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			200: {
				Description: "Fire stations",
				Type:        []StationResponse{},
				Examples:    map[string]any{"Stations": []StationResponse{exampleStation}},
			},
		}),
	})
}

func (s *Handler) GetContact(w http.ResponseWriter, r *http.Request) error {
	st, err := s.svc.Contacts.Lookup(chi.URLParam(r, "town"))
	if errors.Is(err, contacts.ErrUnknownTown) {
		return apicommon.NewError(http.StatusNotFound, "No fire station listed for this town")
	}

	if err != nil {
		return err
	}

	apicommon.RespondJSON(w, r, http.StatusOK, stationResponse(st))

	return nil
}

func (s *Handler) RegisterGetContact(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "getContact",
		Summary:     "Get a fire station's hotlines",
		Description: "Looks a fire station up by town name, ignoring case",
		Group:       ContactsGroup,
		Parameters: map[string]router.ParameterSpec{
			"town": {
				In:          router.ParameterInPath,
				Description: "Town served by the station, e.g. Trece Martires City",
				Required:    true,
				Type:        "",
			},
		},
		Handler: apicommon.ErrorHandler(s.GetContact),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			200: {
				Description: "Fire station",
				Type:        StationResponse{},
				Examples:    map[string]any{"Mendez": exampleStation},
			},
			404: {
				Description: "Town not in the directory",
				Type:        types.ErrorResponse{},
			},
		}),
	})
}
