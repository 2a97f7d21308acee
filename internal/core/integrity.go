package core

// FilterSales keeps only sales whose customer and product survived cleaning.
// A sale with both keys unknown is counted once, as an unknown customer.
func FilterSales(sales []Sale, customers []Customer, products []Product, rep *Report) []Sale {
	custKeys := make(map[string]struct{}, len(customers))
	for _, c := range customers {
		custKeys[c.Key] = struct{}{}
	}
	prodKeys := make(map[string]struct{}, len(products))
	for _, p := range products {
		prodKeys[p.Key] = struct{}{}
	}

	out := make([]Sale, 0, len(sales))
	for _, s := range sales {
		if _, ok := custKeys[s.CustomerKey]; !ok {
			rep.dropSale(DropUnknownCustomer)
			continue
		}
		if _, ok := prodKeys[s.ProductKey]; !ok {
			rep.dropSale(DropUnknownProduct)
			continue
		}
		out = append(out, s)
	}
	return out
}

// Transform runs cleaning and the integrity filter over a raw dataset.
func (c *Cleaner) Transform(raw *RawDataset, rep *Report) *Dataset {
	customers := c.CleanCustomers(raw.Customers, rep)
	products := c.CleanProducts(raw.Products, rep)
	sales := c.CleanSales(raw.Sales, rep)

	return &Dataset{
		Customers: customers,
		Products:  products,
		Sales:     FilterSales(sales, customers, products, rep),
	}
}
