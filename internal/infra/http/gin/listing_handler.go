package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"motomarket/internal/app/commands"
	"motomarket/internal/app/dto"
	listingapp "motomarket/internal/app/handlers/listings"
	"motomarket/internal/app/queries"
	domainlistings "motomarket/internal/domain/listings"
)

const maxPhotoBytes = 10 << 20

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ListingHandler wires listing commands and queries to HTTP.
type ListingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type listingRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Make         string   `json:"make"`
	Model        string   `json:"model"`
	Year         int      `json:"year"`
	MileageKm    int      `json:"mileageKm"`
	EngineCC     int      `json:"engineCc"`
	Condition    string   `json:"condition"`
	PriceCents   int64    `json:"priceCents"`
	Currency     string   `json:"currency"`
	Location     string   `json:"location"`
	Photos       []string `json:"photos"`
	ThumbnailURL string   `json:"thumbnailUrl"`
}

func (r listingRequest) payload() listingapp.ListingPayload {
	return listingapp.ListingPayload{
		Title:        r.Title,
		Description:  r.Description,
		Category:     r.Category,
		Make:         r.Make,
		Model:        r.Model,
		Year:         r.Year,
		MileageKm:    r.MileageKm,
		EngineCC:     r.EngineCC,
		Condition:    r.Condition,
		PriceCents:   r.PriceCents,
		Currency:     r.Currency,
		Location:     r.Location,
		Photos:       r.Photos,
		ThumbnailURL: r.ThumbnailURL,
	}
}

// Catalog responds with a filtered page of active listings.
func (h ListingHandler) Catalog(c *gin.Context) {
	query := listingapp.SearchCatalogQuery{
		Filters: catalogFilters(c),
		Sort:    c.Query("sort"),
		Limit:   queryIntOr(c, "limit", domainlistings.DefaultSearchLimit),
		Offset:  queryInt(c, "offset"),
	}
	result, err := queries.Ask[listingapp.SearchCatalogQuery, dto.ListingCatalog](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Get(c *gin.Context) {
	query := listingapp.GetListingQuery{ListingID: c.Param("id"), ViewerID: viewerID(c)}
	result, err := queries.Ask[listingapp.GetListingQuery, dto.ListingDetail](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Mine lists every listing of the caller regardless of status.
func (h ListingHandler) Mine(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	query := listingapp.SellerListingsQuery{SellerID: p.ID()}
	result, err := queries.Ask[listingapp.SellerListingsQuery, dto.ListingCatalog](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Create(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req listingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid listing payload")
		return
	}
	cmd := listingapp.CreateListingCommand{SellerID: p.ID(), Payload: req.payload(), RequestKey: requestKey(c)}
	result, err := commands.Dispatch[listingapp.CreateListingCommand, *dto.ListingDetail](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ListingHandler) Update(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req listingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid listing payload")
		return
	}
	cmd := listingapp.UpdateListingCommand{SellerID: p.ID(), ListingID: c.Param("id"), Payload: req.payload()}
	result, err := commands.Dispatch[listingapp.UpdateListingCommand, *dto.ListingDetail](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Remove(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	cmd := listingapp.RemoveListingCommand{SellerID: p.ID(), ListingID: c.Param("id")}
	if _, err := commands.Dispatch[listingapp.RemoveListingCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h ListingHandler) MarkSold(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	cmd := listingapp.MarkSoldCommand{SellerID: p.ID(), ListingID: c.Param("id")}
	result, err := commands.Dispatch[listingapp.MarkSoldCommand, *dto.ListingDetail](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UploadPhoto accepts a multipart "photo" field of up to 10MB.
func (h ListingHandler) UploadPhoto(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	listingID := strings.TrimSpace(c.Param("id"))
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPhotoBytes+(1<<20))
	header, err := c.FormFile("photo")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "photo exceeds 10MB"})
			return
		}
		badRequest(c, "photo file is required")
		return
	}
	if header.Size > maxPhotoBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "photo exceeds 10MB"})
		return
	}
	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	ext, allowed := photoExtensions[contentType]
	if !allowed {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "only jpeg, png and webp photos are accepted"})
		return
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	defer file.Close()

	cmd := listingapp.UploadListingPhotoCommand{
		SellerID:    p.ID(),
		ListingID:   listingID,
		ObjectKey:   path.Join("listings", listingID, uuid.NewString()+ext),
		ContentType: contentType,
		Size:        header.Size,
		Reader:      file,
	}
	result, err := commands.Dispatch[listingapp.UploadListingPhotoCommand, *dto.PhotoUploadResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

var _ ListingHTTP = ListingHandler{}

func catalogFilters(c *gin.Context) domainlistings.Filters {
	return domainlistings.Filters{
		Query:         c.Query("q"),
		Category:      domainlistings.Category(c.Query("category")),
		Make:          c.Query("make"),
		Model:         c.Query("model"),
		Condition:     domainlistings.Condition(c.Query("condition")),
		Location:      c.Query("location"),
		PriceMinCents: queryCents(c, "price_min"),
		PriceMaxCents: queryCents(c, "price_max"),
		YearMin:       queryInt(c, "year_min"),
		YearMax:       queryInt(c, "year_max"),
		MileageMaxKm:  queryInt(c, "mileage_max"),
		Seller:        domainlistings.SellerID(c.Query("seller_id")),
	}
}
