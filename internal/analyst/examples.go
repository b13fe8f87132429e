package analyst

// ExampleQuestions are shown next to the table preview as starting points.
var ExampleQuestions = []string{
	"Quais são os principais insights ou métricas de negócio?",
	"Qual o faturamento total?",
	"Qual o cliente com maior valor?",
	"Qual o ticket médio por nota?",
	"Qual a transação mais frequente? Compra ou venda?",
	"Me dê um gráfico de pizza dos 5 setores mais comuns.",
	"Quais insights e oportunidades de negócios esses dados podem revelar?",
}
