package handler

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/freshlane/grocer-orders/internal/domain/carbon"
	"github.com/freshlane/grocer-orders/internal/domain/order"
	"github.com/freshlane/grocer-orders/internal/domain/schedule"
)

const dateLayout = "2006-01-02"

type lineRequest struct {
	ProductID   int64           `json:"productId" validate:"required,gt=0"`
	ProductName string          `json:"productName" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
	Weight      decimal.Decimal `json:"weight"`
}

type addressRequest struct {
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

type createOrderRequest struct {
	Items              []lineRequest   `json:"items" validate:"required,min=1,dive"`
	PaymentMethod      string          `json:"paymentMethod" validate:"omitempty,oneof=CASH CREDIT_CARD DEBIT_CARD QR_CODE ONLINE"`
	ShippingAddress    *addressRequest `json:"shippingAddress"`
	DeliveryDistanceKm *float64        `json:"deliveryDistanceKm" validate:"omitempty,gt=0"`
	PackagingType      string          `json:"packagingType" validate:"omitempty,oneof=STANDARD ECO_FRIENDLY MINIMAL"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type scheduledOrderRequest struct {
	OrderName       string          `json:"orderName"`
	OrderType       string          `json:"orderType" validate:"required,oneof=ONE_TIME RECURRING"`
	RecurrenceType  string          `json:"recurrenceType" validate:"omitempty,oneof=DAILY WEEKLY MONTHLY"`
	ScheduledDate   string          `json:"scheduledDate" validate:"required"`
	ScheduledTime   string          `json:"scheduledTime"`
	DeliveryDate    string          `json:"deliveryDate"`
	DeliveryTime    string          `json:"deliveryTime"`
	EndDate         string          `json:"endDate"`
	MaxOccurrences  int             `json:"maxOccurrences" validate:"gte=0"`
	Items           []lineRequest   `json:"items" validate:"required,min=1,dive"`
	ShippingAddress *addressRequest `json:"shippingAddress"`
	DeliveryPoint   string          `json:"deliveryPoint"`
	Notes           string          `json:"notes"`
}

func (req createOrderRequest) toDomain(userID int64, pos bool) order.CreateOrderRequest {
	out := order.CreateOrderRequest{
		UserID:          userID,
		Lines:           toLineInputs(req.Items),
		PaymentMethod:   order.PaymentMethod(req.PaymentMethod),
		POS:             pos,
		ShippingAddress: toAddress(req.ShippingAddress),
		PackagingType:   req.PackagingType,
	}
	if out.PaymentMethod == "" {
		out.PaymentMethod = order.PaymentOnline
	}
	if req.DeliveryDistanceKm != nil {
		out.DeliveryDistanceKm = decimal.NullDecimal{
			Decimal: decimal.NewFromFloat(*req.DeliveryDistanceKm),
			Valid:   true,
		}
	}
	return out
}

func (req scheduledOrderRequest) toDomain() (schedule.CreateRequest, error) {
	scheduledDate, err := time.Parse(dateLayout, req.ScheduledDate)
	if err != nil {
		return schedule.CreateRequest{}, errors.Wrap(err, "parse scheduledDate")
	}

	out := schedule.CreateRequest{
		Name:            req.OrderName,
		Type:            schedule.OrderType(req.OrderType),
		Recurrence:      schedule.RecurrenceType(req.RecurrenceType),
		ScheduledDate:   scheduledDate,
		ScheduledTime:   req.ScheduledTime,
		DeliveryTime:    req.DeliveryTime,
		MaxOccurrences:  req.MaxOccurrences,
		ShippingAddress: toAddress(req.ShippingAddress),
		DeliveryPoint:   req.DeliveryPoint,
		Notes:           req.Notes,
	}

	if req.DeliveryDate != "" {
		out.DeliveryDate, err = time.Parse(dateLayout, req.DeliveryDate)
		if err != nil {
			return schedule.CreateRequest{}, errors.Wrap(err, "parse deliveryDate")
		}
	}
	if req.EndDate != "" {
		endDate, err := time.Parse(dateLayout, req.EndDate)
		if err != nil {
			return schedule.CreateRequest{}, errors.Wrap(err, "parse endDate")
		}
		out.EndDate = &endDate
	}

	out.Lines = make([]schedule.LineInput, len(req.Items))
	for i, item := range req.Items {
		out.Lines[i] = schedule.LineInput{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Price:       item.Price,
			Quantity:    item.Quantity,
			Weight:      item.Weight,
		}
	}
	return out, nil
}

func toLineInputs(items []lineRequest) []order.LineInput {
	lines := make([]order.LineInput, len(items))
	for i, item := range items {
		lines[i] = order.LineInput{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Price:       item.Price,
			Quantity:    item.Quantity,
			Weight:      item.Weight,
		}
	}
	return lines
}

func toAddress(a *addressRequest) *order.ShippingAddress {
	if a == nil {
		return nil
	}
	return &order.ShippingAddress{
		Street:  a.Street,
		City:    a.City,
		State:   a.State,
		ZipCode: a.ZipCode,
		Country: a.Country,
	}
}

type lineResponse struct {
	ProductID   int64   `json:"productId"`
	ProductName string  `json:"productName"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Weight      float64 `json:"weight"`
	Subtotal    float64 `json:"subtotal"`
}

type orderResponse struct {
	ID                 int64                  `json:"id"`
	OrderNumber        string                 `json:"orderNumber"`
	UserID             int64                  `json:"userId"`
	Items              []lineResponse         `json:"items"`
	Subtotal           float64                `json:"subtotal"`
	TaxAmount          float64                `json:"taxAmount"`
	DeliveryFee        float64                `json:"deliveryFee"`
	TotalAmount        float64                `json:"totalAmount"`
	Status             order.Status           `json:"status"`
	PaymentMethod      order.PaymentMethod    `json:"paymentMethod"`
	IsPOSOrder         bool                   `json:"isPosOrder"`
	ShippingAddress    *order.ShippingAddress `json:"shippingAddress,omitempty"`
	CarbonFootprintKg  *float64               `json:"carbonFootprintKg,omitempty"`
	DeliveryDistanceKm *float64               `json:"deliveryDistanceKm,omitempty"`
	PackagingType      string                 `json:"packagingType,omitempty"`
	CreatedAt          time.Time              `json:"createdAt"`
	UpdatedAt          time.Time              `json:"updatedAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		OrderNumber:     o.Number,
		UserID:          o.UserID,
		Items:           toLineResponses(o.Lines),
		Subtotal:        o.Subtotal.InexactFloat64(),
		TaxAmount:       o.Tax.InexactFloat64(),
		DeliveryFee:     o.DeliveryFee.InexactFloat64(),
		TotalAmount:     o.Total.InexactFloat64(),
		Status:          o.Status,
		PaymentMethod:   o.PaymentMethod,
		IsPOSOrder:      o.POS,
		ShippingAddress: o.ShippingAddress,
		PackagingType:   o.PackagingType,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if o.CarbonFootprintKg.Valid {
		kg := o.CarbonFootprintKg.Decimal.InexactFloat64()
		resp.CarbonFootprintKg = &kg
	}
	if o.DeliveryDistanceKm.Valid {
		km := o.DeliveryDistanceKm.Decimal.InexactFloat64()
		resp.DeliveryDistanceKm = &km
	}
	return resp
}

func toOrderResponses(orders []order.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	return out
}

func toLineResponses(lines []order.Line) []lineResponse {
	out := make([]lineResponse, len(lines))
	for i, l := range lines {
		out[i] = lineResponse{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Price:       l.Price.InexactFloat64(),
			Quantity:    l.Quantity,
			Weight:      l.Weight.InexactFloat64(),
			Subtotal:    l.Subtotal.InexactFloat64(),
		}
	}
	return out
}

type scheduledOrderResponse struct {
	ID                int64                  `json:"id"`
	UserID            int64                  `json:"userId"`
	OrderName         string                 `json:"orderName,omitempty"`
	OrderType         schedule.OrderType     `json:"orderType"`
	RecurrenceType    string                 `json:"recurrenceType,omitempty"`
	ScheduledDate     string                 `json:"scheduledDate"`
	ScheduledTime     string                 `json:"scheduledTime,omitempty"`
	DeliveryDate      string                 `json:"deliveryDate"`
	DeliveryTime      string                 `json:"deliveryTime,omitempty"`
	Status            schedule.Status        `json:"status"`
	NextExecutionDate string                 `json:"nextExecutionDate"`
	EndDate           string                 `json:"endDate,omitempty"`
	MaxOccurrences    int                    `json:"maxOccurrences"`
	CurrentOccurrence int                    `json:"currentOccurrence"`
	Items             []lineResponse         `json:"items"`
	ShippingAddress   *order.ShippingAddress `json:"shippingAddress,omitempty"`
	DeliveryPoint     string                 `json:"deliveryPoint,omitempty"`
	Notes             string                 `json:"notes,omitempty"`
	CreatedAt         time.Time              `json:"createdAt"`
}

func toScheduledOrderResponse(so *schedule.ScheduledOrder) scheduledOrderResponse {
	resp := scheduledOrderResponse{
		ID:                so.ID,
		UserID:            so.UserID,
		OrderName:         so.Name,
		OrderType:         so.Type,
		RecurrenceType:    string(so.Recurrence),
		ScheduledDate:     so.ScheduledDate.Format(dateLayout),
		ScheduledTime:     so.ScheduledTime,
		DeliveryDate:      so.DeliveryDate.Format(dateLayout),
		DeliveryTime:      so.DeliveryTime,
		Status:            so.Status,
		NextExecutionDate: so.NextExecutionDate.Format(dateLayout),
		MaxOccurrences:    so.MaxOccurrences,
		CurrentOccurrence: so.CurrentOccurrence,
		Items:             toScheduleLineResponses(so.Lines),
		ShippingAddress:   so.ShippingAddress,
		DeliveryPoint:     so.DeliveryPoint,
		Notes:             so.Notes,
		CreatedAt:         so.CreatedAt,
	}
	if so.EndDate != nil {
		resp.EndDate = so.EndDate.Format(dateLayout)
	}
	return resp
}

func toScheduledOrderResponses(orders []schedule.ScheduledOrder) []scheduledOrderResponse {
	out := make([]scheduledOrderResponse, len(orders))
	for i := range orders {
		out[i] = toScheduledOrderResponse(&orders[i])
	}
	return out
}

func toScheduleLineResponses(lines []schedule.Line) []lineResponse {
	out := make([]lineResponse, len(lines))
	for i, l := range lines {
		out[i] = lineResponse{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Price:       l.Price.InexactFloat64(),
			Quantity:    l.Quantity,
			Weight:      l.Weight.InexactFloat64(),
			Subtotal:    l.Subtotal.InexactFloat64(),
		}
	}
	return out
}

type executionResponse struct {
	ID              int64                    `json:"id"`
	ExecutedOrderID *int64                   `json:"executedOrderId,omitempty"`
	ExecutionDate   time.Time                `json:"executionDate"`
	Status          schedule.ExecutionStatus `json:"status"`
	ErrorMessage    string                   `json:"errorMessage,omitempty"`
}

func toExecutionResponses(records []schedule.ExecutionRecord) []executionResponse {
	out := make([]executionResponse, len(records))
	for i, rec := range records {
		out[i] = executionResponse{
			ID:              rec.ID,
			ExecutedOrderID: rec.ExecutedOrderID,
			ExecutionDate:   rec.ExecutedAt,
			Status:          rec.Status,
			ErrorMessage:    rec.ErrorMessage,
		}
	}
	return out
}

type salesReportResponse struct {
	Date         string  `json:"date"`
	TotalOrders  int     `json:"totalOrders"`
	TotalRevenue float64 `json:"totalRevenue"`
	CashSales    float64 `json:"cashSales"`
	CardSales    float64 `json:"cardSales"`
	QRSales      float64 `json:"qrSales"`
	OnlineSales  float64 `json:"onlineSales"`
}

func toSalesReportResponse(rep order.SalesReport) salesReportResponse {
	return salesReportResponse{
		Date:         rep.Date.Format(dateLayout),
		TotalOrders:  rep.TotalOrders,
		TotalRevenue: rep.TotalRevenue.InexactFloat64(),
		CashSales:    rep.CashSales.InexactFloat64(),
		CardSales:    rep.CardSales.InexactFloat64(),
		QRSales:      rep.QRSales.InexactFloat64(),
		OnlineSales:  rep.OnlineSales.InexactFloat64(),
	}
}

type frequentProductResponse struct {
	ProductID       int64    `json:"productId"`
	ProductName     string   `json:"productName"`
	AveragePrice    float64  `json:"averagePrice"`
	TimesOrdered    int      `json:"timesOrdered"`
	AverageQuantity int      `json:"averageQuantity"`
	AverageWeight   *float64 `json:"averageWeight,omitempty"`
	LastOrderedDate string   `json:"lastOrderedDate"`
}

func toFrequentProductResponses(products []order.FrequentProduct) []frequentProductResponse {
	out := make([]frequentProductResponse, len(products))
	for i, p := range products {
		resp := frequentProductResponse{
			ProductID:       p.ProductID,
			ProductName:     p.ProductName,
			AveragePrice:    p.AveragePrice.InexactFloat64(),
			TimesOrdered:    p.TimesOrdered,
			AverageQuantity: p.AverageQuantity,
			LastOrderedDate: p.LastOrderedDate.Format(dateLayout),
		}
		if p.AverageWeight.Valid {
			weight := p.AverageWeight.Decimal.InexactFloat64()
			resp.AverageWeight = &weight
		}
		out[i] = resp
	}
	return out
}

type categoryFootprintResponse struct {
	Category  string  `json:"category"`
	Kg        float64 `json:"carbonKg"`
	ItemCount int     `json:"itemCount"`
}

type footprintResponse struct {
	OrderID            int64                       `json:"orderId"`
	TotalKg            float64                     `json:"totalCarbonKg"`
	ProductKg          float64                     `json:"productCarbonKg"`
	DeliveryKg         float64                     `json:"deliveryCarbonKg"`
	PackagingKg        float64                     `json:"packagingCarbonKg"`
	DeliveryDistanceKm float64                     `json:"deliveryDistanceKm"`
	PackagingType      carbon.PackagingType        `json:"packagingType"`
	Categories         []categoryFootprintResponse `json:"categories"`
}

func toFootprintResponse(orderID int64, fp carbon.Footprint) footprintResponse {
	categories := make([]categoryFootprintResponse, len(fp.Categories))
	for i, c := range fp.Categories {
		categories[i] = categoryFootprintResponse{
			Category:  c.Category,
			Kg:        c.Kg.InexactFloat64(),
			ItemCount: c.ItemCount,
		}
	}
	return footprintResponse{
		OrderID:            orderID,
		TotalKg:            fp.TotalKg.InexactFloat64(),
		ProductKg:          fp.Breakdown.ProductKg.InexactFloat64(),
		DeliveryKg:         fp.Breakdown.DeliveryKg.InexactFloat64(),
		PackagingKg:        fp.Breakdown.PackagingKg.InexactFloat64(),
		DeliveryDistanceKm: fp.DeliveryDistanceKm.InexactFloat64(),
		PackagingType:      fp.Packaging,
		Categories:         categories,
	}
}

type monthlyFootprintResponse struct {
	Month      string  `json:"month"`
	Kg         float64 `json:"carbonKg"`
	OrderCount int     `json:"orderCount"`
}

type carbonSummaryResponse struct {
	UserID          int64                      `json:"userId"`
	TotalOrders     int                        `json:"totalOrders"`
	TotalKg         float64                    `json:"totalCarbonKg"`
	AveragePerOrder float64                    `json:"averagePerOrderKg"`
	MinKg           float64                    `json:"minOrderKg"`
	MaxKg           float64                    `json:"maxOrderKg"`
	FirstOrderDate  string                     `json:"firstOrderDate,omitempty"`
	LastOrderDate   string                     `json:"lastOrderDate,omitempty"`
	CarbonSavedKg   float64                    `json:"carbonSavedKg"`
	EcoBadge        string                     `json:"ecoBadge"`
	Monthly         []monthlyFootprintResponse `json:"monthlyFootprint"`
}

func toCarbonSummaryResponse(s carbon.Summary) carbonSummaryResponse {
	monthly := make([]monthlyFootprintResponse, len(s.Monthly))
	for i, m := range s.Monthly {
		monthly[i] = monthlyFootprintResponse{
			Month:      m.Month,
			Kg:         m.Kg.InexactFloat64(),
			OrderCount: m.OrderCount,
		}
	}

	resp := carbonSummaryResponse{
		UserID:          s.UserID,
		TotalOrders:     s.TotalOrders,
		TotalKg:         s.TotalKg.InexactFloat64(),
		AveragePerOrder: s.AveragePerOrder.InexactFloat64(),
		MinKg:           s.MinKg.InexactFloat64(),
		MaxKg:           s.MaxKg.InexactFloat64(),
		CarbonSavedKg:   s.CarbonSavedKg.InexactFloat64(),
		EcoBadge:        s.EcoBadge,
		Monthly:         monthly,
	}
	if !s.FirstOrderDate.IsZero() {
		resp.FirstOrderDate = s.FirstOrderDate.Format(dateLayout)
	}
	if !s.LastOrderDate.IsZero() {
		resp.LastOrderDate = s.LastOrderDate.Format(dateLayout)
	}
	return resp
}
